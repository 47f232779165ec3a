package loader

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/chrisw65/market-profile/internal/assert"
	"github.com/chrisw65/market-profile/internal/components/chrono"
	"github.com/chrisw65/market-profile/internal/components/telemetry"

	"github.com/PuerkitoBio/purell"
	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_page_cache_get = "page_cache.get"
	report_page_cache_set = "page_cache.set"
)

var errPageNotFound = badger.ErrKeyNotFound

type cachedPage struct {
	Payload   Payload `json:"payload"`
	ExpiresAt int64   `json:"expiresAt"`
}

// CachedLoader keeps rendered pages in badger so repeated scrapes of the same
// url within ttl do not launch a browser. Only successful loads are cached.
type CachedLoader struct {
	inner PageLoader
	db    *badger.DB
	ttl   time.Duration
	time  chrono.TimeAPI
	tel   telemetry.API
}

func NewCachedLoader(
	inner PageLoader,
	db *badger.DB,
	ttl time.Duration,
	clock chrono.TimeAPI,
	tel telemetry.API,
) CachedLoader {
	assert.NotNil(inner, "inner loader")
	assert.NotNil(db, "badger db")
	assert.NotNil(clock, "clock")
	assert.NotNil(tel, "telemetry")

	return CachedLoader{
		inner: inner,
		db:    db,
		ttl:   ttl,
		time:  clock,
		tel:   telemetry.NewScopedAPI("loader", tel),
	}
}

func (c CachedLoader) Load(ctx context.Context, pageUrl string, opts Options) (Payload, error) {
	key, err := c.key(pageUrl)
	if err != nil {
		return c.inner.Load(ctx, pageUrl, opts)
	}

	cached, err := c.get(ctx, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, errPageNotFound) {
		c.tel.ReportBroken(report_page_cache_get, err, key)
	}

	payload, err := c.inner.Load(ctx, pageUrl, opts)
	if err != nil {
		return Payload{}, err
	}

	err = c.set(ctx, key, payload)
	if err != nil {
		c.tel.ReportBroken(report_page_cache_set, err, key)
	}
	return payload, nil
}

func (c CachedLoader) key(pageUrl string) (string, error) {
	parsed, err := url.Parse(pageUrl)
	if err != nil {
		return "", err
	}
	normalized := purell.NormalizeURL(
		parsed,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeNonGreedy|
			purell.FlagRemoveDirectoryIndex|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	)
	return "page:" + normalized, nil
}

func (c CachedLoader) get(ctx context.Context, key string) (Payload, error) {
	_, span := tracer.Start(ctx, "page_cache:get")
	defer span.End()
	span.SetAttributes(attribute.String("cache_key", key))

	tx := c.db.NewTransaction(false)
	defer tx.Discard()
	item, err := tx.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return Payload{}, errPageNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return Payload{}, err
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy cached item")
		return Payload{}, err
	}

	var cached cachedPage
	err = json.Unmarshal(serialized, &cached)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize cached item")
		return Payload{}, err
	}

	if c.time.Now().Unix() >= cached.ExpiresAt {
		span.AddEvent("delete expired cache key", trace.WithAttributes(
			attribute.String("key", key),
		))

		err = c.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(key))
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete expired key")
		}
		return Payload{}, errPageNotFound
	}

	span.AddEvent("returned cached page", trace.WithAttributes(
		attribute.Int("contentlength", len(cached.Payload.HTML)),
	))
	if cached.Payload.LdJSON == nil {
		cached.Payload.LdJSON = []any{}
	}
	return cached.Payload, nil
}

func (c CachedLoader) set(ctx context.Context, key string, payload Payload) error {
	_, span := tracer.Start(ctx, "page_cache:set")
	defer span.End()
	span.SetAttributes(attribute.String("cache_key", key))

	serialized, err := json.Marshal(cachedPage{
		Payload:   payload,
		ExpiresAt: c.time.Now().Add(c.ttl).Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize page")
		return err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), serialized)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}
	return nil
}
