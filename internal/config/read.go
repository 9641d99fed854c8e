package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// mergeOverride copies every non-zero field of src over dst.
func mergeOverride[T any](dst *T, src T) error {
	return mergo.Merge(dst, src, mergo.WithOverride)
}

// localPath turns "dir/handins.json5" into "dir/handins.local.json5".
func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// readLayer parses `path` into a fresh T. found is false when the file does
// not exist or is empty.
func readLayer[T any](path string) (layer T, found bool, err error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return layer, false, nil
	}
	if err != nil {
		return layer, false, err
	}
	if len(contents) == 0 {
		return layer, false, nil
	}
	err = json5.Unmarshal(contents, &layer)
	if err != nil {
		return layer, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return layer, true, nil
}

// Read parses the json5 file at `path` and merges `<name>.local.<ext>` next to
// it over the result, so machine specific settings can stay out of version
// control. Either file may be missing, os.ErrNotExist is returned when both
// are.
func Read[T any](path string) (T, error) {
	var out T
	found := false

	for _, layerPath := range []string{path, localPath(path)} {
		layer, ok, err := readLayer[T](layerPath)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		if found {
			slog.Debug("merging config with local overrides", "local", layerPath)
		}
		err = mergeOverride(&out, layer)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", layerPath, err)
		}
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively calls Read on `name` in `start` and then in every parent
// directory up to the filesystem root, returning the first config found.
func ReadRecursively[T any](start, name string) (T, error) {
	var empty T

	dir, err := filepath.Abs(start)
	if err != nil {
		return empty, err
	}

	for {
		out, err := Read[T](filepath.Join(dir, name))
		if err == nil {
			return out, nil
		}
		if !os.IsNotExist(err) {
			return empty, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return empty, os.ErrNotExist
		}
		dir = parent
	}
}
