// Package configutil reads json5 configuration files that may be overridden by
// an untracked `<name>.local.<ext>` sibling.
package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalPath returns the override file for name, ex. config.json5 ->
// config.local.json5.
func LocalPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// readLayer decodes the file at path, ok is false when it does not exist or
// is empty.
func readLayer[T any](path string) (out T, ok bool, err error) {
	buff, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if len(buff) == 0 {
		return out, false, nil
	}
	err = json5.Unmarshal(buff, &out)
	if err != nil {
		return out, false, fmt.Errorf("configutil: parse %s: %w", path, err)
	}
	return out, true, nil
}

// ReadConfig decodes name and merges its local override on top, values set in
// the override win. It returns os.ErrNotExist when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := false

	for _, path := range []string{name, LocalPath(name)} {
		layer, ok, err := readLayer[T](path)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		if !found {
			out = layer
			found = true
			continue
		}
		err = mergo.Merge(&out, layer, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("configutil: merge %s: %w", path, err)
		}
		slog.Info("merged local config overrides", "path", path)
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively looks for name in the working directory and then in every
// parent up to the filesystem root, the first match is read with ReadConfig.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	dir, err := os.Getwd()
	if err != nil {
		return zero, err
	}
	for {
		config, err := ReadConfig[T](filepath.Join(dir, name))
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return zero, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return zero, os.ErrNotExist
		}
		dir = parent
	}
}
