// Package store persists community snapshots and saved campaigns in any
// database/sql backend (sqlite, libsql or postgres).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chrisw65/market-profile/internal/assert"
	"github.com/chrisw65/market-profile/internal/components/chrono"
	"github.com/chrisw65/market-profile/internal/skool/model"
	"github.com/chrisw65/market-profile/lib/configutil/dbconfig"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("market-profile/internal/store")

var ErrNotFound = errors.New("store: not found")

const DefaultCommunityLimit = 20

type SavedSnapshot struct {
	ID        string                  `json:"id"`
	Slug      string                  `json:"slug"`
	Profile   *model.CommunityProfile `json:"profile"`
	Classroom []model.SkoolItem       `json:"classroom"`
	Posts     []model.SkoolItem       `json:"posts"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

type CommunitySummary struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type Campaign struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes"`
	Ideas     string    `json:"ideas"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db     *sql.DB
	driver dbconfig.Driver
	clock  chrono.TimeAPI
}

// Open applies the schema against db in a single transaction and returns a
// Store bound to it.
func Open(ctx context.Context, db *sql.DB, driver dbconfig.Driver, clock chrono.TimeAPI) (Store, error) {
	assert.NotNil(db, "db")
	assert.NotNil(clock, "clock")

	tx, discard, commit, err := NewMakeTx(db)(ctx)
	if err != nil {
		return Store{}, fmt.Errorf("store: apply schema: %w", err)
	}
	defer discard()

	for _, stmt := range statements() {
		_, err := tx.ExecContext(ctx, stmt)
		if err != nil {
			return Store{}, fmt.Errorf("store: apply schema: %w", err)
		}
	}
	err = commit()
	if err != nil {
		return Store{}, fmt.Errorf("store: apply schema: %w", err)
	}

	return Store{
		db:     db,
		driver: driver,
		clock:  clock,
	}, nil
}

// rebind rewrites `?` placeholders into `$n` for postgres.
func (s Store) rebind(query string) string {
	if s.driver != dbconfig.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func marshalItems(items []model.SkoolItem) (string, error) {
	if items == nil {
		items = []model.SkoolItem{}
	}
	buff, err := json.Marshal(items)
	return string(buff), err
}

// SaveSnapshot inserts the snapshot of a community or replaces the one that
// was saved before under the same slug.
func (s Store) SaveSnapshot(ctx context.Context, snapshot model.Snapshot) error {
	ctx, span := tracer.Start(ctx, "store:SaveSnapshot")
	defer span.End()
	span.SetAttributes(attribute.String("slug", snapshot.Slug))

	var profile sql.NullString
	if snapshot.Profile != nil {
		buff, err := json.Marshal(snapshot.Profile)
		if err != nil {
			return fmt.Errorf("store: encode profile: %w", err)
		}
		profile = sql.NullString{String: string(buff), Valid: true}
	}
	classroom, err := marshalItems(snapshot.Classroom)
	if err != nil {
		return fmt.Errorf("store: encode classroom: %w", err)
	}
	posts, err := marshalItems(snapshot.Posts)
	if err != nil {
		return fmt.Errorf("store: encode posts: %w", err)
	}

	now := s.clock.Now().Unix()

	// created_at keeps the value of the first save
	_, err = s.db.ExecContext(
		ctx,
		s.rebind(`insert into community_snapshot(id, slug, profile, classroom, posts, created_at, updated_at)
values (?, ?, ?, ?, ?, ?, ?)
on conflict(slug) do update set
	profile = excluded.profile,
	classroom = excluded.classroom,
	posts = excluded.posts,
	updated_at = excluded.updated_at`),
		uuid.NewString(), snapshot.Slug, profile, classroom, posts, now, now,
	)
	if err != nil {
		err = fmt.Errorf("store: save snapshot '%s': %w", snapshot.Slug, err)
		fail(span, err)
		return err
	}
	return nil
}

// LatestSnapshot returns the snapshot saved under slug or ErrNotFound.
func (s Store) LatestSnapshot(ctx context.Context, slug string) (SavedSnapshot, error) {
	ctx, span := tracer.Start(ctx, "store:LatestSnapshot")
	defer span.End()
	span.SetAttributes(attribute.String("slug", slug))

	var (
		out                SavedSnapshot
		profile            sql.NullString
		classroom, posts   string
		createdAt, updated int64
	)
	err := s.db.QueryRowContext(
		ctx,
		s.rebind(`select id, slug, profile, classroom, posts, created_at, updated_at
from community_snapshot where slug = ?`),
		slug,
	).Scan(&out.ID, &out.Slug, &profile, &classroom, &posts, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedSnapshot{}, ErrNotFound
	}
	if err != nil {
		fail(span, err)
		return SavedSnapshot{}, fmt.Errorf("store: latest snapshot '%s': %w", slug, err)
	}

	if profile.Valid {
		out.Profile = &model.CommunityProfile{}
		err = json.Unmarshal([]byte(profile.String), out.Profile)
		if err != nil {
			return SavedSnapshot{}, fmt.Errorf("store: decode profile: %w", err)
		}
	}
	err = json.Unmarshal([]byte(classroom), &out.Classroom)
	if err != nil {
		return SavedSnapshot{}, fmt.Errorf("store: decode classroom: %w", err)
	}
	err = json.Unmarshal([]byte(posts), &out.Posts)
	if err != nil {
		return SavedSnapshot{}, fmt.Errorf("store: decode posts: %w", err)
	}
	out.CreatedAt = time.Unix(createdAt, 0).UTC()
	out.UpdatedAt = time.Unix(updated, 0).UTC()
	return out, nil
}

// ListCommunities returns the most recently saved communities first, limit <= 0
// uses DefaultCommunityLimit.
func (s Store) ListCommunities(ctx context.Context, limit int) ([]CommunitySummary, error) {
	ctx, span := tracer.Start(ctx, "store:ListCommunities")
	defer span.End()

	if limit <= 0 {
		limit = DefaultCommunityLimit
	}
	rows, err := s.db.QueryContext(
		ctx,
		s.rebind(`select id, slug, created_at from community_snapshot
order by updated_at desc limit ?`),
		limit,
	)
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("store: list communities: %w", err)
	}
	defer rows.Close()

	out := []CommunitySummary{}
	for rows.Next() {
		var (
			summary   CommunitySummary
			createdAt int64
		)
		err = rows.Scan(&summary.ID, &summary.Slug, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("store: list communities: %w", err)
		}
		summary.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, summary)
	}
	return out, rows.Err()
}

// SaveCampaign stores a generated campaign, the id and creation time are
// assigned here and an empty title is replaced with a dated one.
func (s Store) SaveCampaign(ctx context.Context, campaign Campaign) (Campaign, error) {
	ctx, span := tracer.Start(ctx, "store:SaveCampaign")
	defer span.End()

	if strings.TrimSpace(campaign.Slug) == "" {
		return Campaign{}, fmt.Errorf("store: campaign slug is required")
	}

	campaign.ID = uuid.NewString()
	campaign.CreatedAt = s.clock.Now().UTC().Truncate(time.Second)
	if strings.TrimSpace(campaign.Title) == "" {
		campaign.Title = fmt.Sprintf("Campaign %s", campaign.CreatedAt.Format(time.DateTime))
	}

	_, err := s.db.ExecContext(
		ctx,
		s.rebind(`insert into saved_campaign(id, slug, title, notes, ideas, created_at)
values (?, ?, ?, ?, ?, ?)`),
		campaign.ID, campaign.Slug, campaign.Title, campaign.Notes, campaign.Ideas,
		campaign.CreatedAt.Unix(),
	)
	if err != nil {
		fail(span, err)
		return Campaign{}, fmt.Errorf("store: save campaign: %w", err)
	}
	return campaign, nil
}

// ListCampaigns returns saved campaigns newest first, only those of slug when
// slug is not empty.
func (s Store) ListCampaigns(ctx context.Context, slug string) ([]Campaign, error) {
	ctx, span := tracer.Start(ctx, "store:ListCampaigns")
	defer span.End()

	query := "select id, slug, title, notes, ideas, created_at from saved_campaign"
	var args []any
	if slug != "" {
		query += " where slug = ?"
		args = append(args, slug)
	}
	query += " order by created_at desc"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("store: list campaigns: %w", err)
	}
	defer rows.Close()

	out := []Campaign{}
	for rows.Next() {
		var (
			campaign  Campaign
			createdAt int64
		)
		err = rows.Scan(
			&campaign.ID, &campaign.Slug, &campaign.Title,
			&campaign.Notes, &campaign.Ideas, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("store: list campaigns: %w", err)
		}
		campaign.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, campaign)
	}
	return out, rows.Err()
}

func (s Store) DeleteCampaign(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "store:DeleteCampaign")
	defer span.End()

	res, err := s.db.ExecContext(ctx, s.rebind("delete from saved_campaign where id = ?"), id)
	if err != nil {
		fail(span, err)
		return fmt.Errorf("store: delete campaign: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}
