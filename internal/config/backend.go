package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cast"
)

// ConfigBackend abstracts persistent config storage.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

// jsonFile is a ConfigBackend over a flat JSON object of dotted keys.
type jsonFile struct {
	path   string
	values map[string]any
}

// openJSONFile reads path if it exists. An unreadable or malformed file is
// logged and treated as empty so defaults apply.
func openJSONFile(path string) *jsonFile {
	values, err := readJSONFile(path)
	if err != nil {
		slog.Warn("ignoring config file", "path", path, "error", err)
		values = map[string]any{}
	}
	return &jsonFile{path: path, values: values}
}

// ConfigFilePath returns the location of the JSON config file.
func ConfigFilePath() string {
	return configFilePath()
}

func configFilePath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "academate", "config.json")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "academate", "config.json")
}

func readJSONFile(path string) (map[string]any, error) {
	values := map[string]any{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}

// writeJSONFile replaces path through a temp file in the same directory so a
// failed write leaves the previous file intact.
func writeJSONFile(path string, values map[string]any) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (f *jsonFile) GetString(key string) (string, bool, error) {
	v, ok := f.values[key]
	if !ok {
		return "", false, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", true, fmt.Errorf("config key %s: %w", key, err)
	}
	return s, true, nil
}

func (f *jsonFile) GetInt(key string) (int, bool, error) {
	v, ok := f.values[key]
	if !ok {
		return 0, false, nil
	}
	if n, isNum := v.(json.Number); isNum {
		i, err := strconv.Atoi(n.String())
		if err != nil {
			return 0, true, fmt.Errorf("config key %s: %q is not an integer", key, n)
		}
		return i, true, nil
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, true, fmt.Errorf("config key %s: %w", key, err)
	}
	return i, true, nil
}

func (f *jsonFile) SetString(key, val string) error {
	return f.update(func(m map[string]any) { m[key] = val })
}

func (f *jsonFile) SetInt(key string, val int) error {
	return f.update(func(m map[string]any) { m[key] = val })
}

func (f *jsonFile) Delete(key string) error {
	return f.update(func(m map[string]any) { delete(m, key) })
}

// update applies edit to a copy and keeps it only once the file is written.
func (f *jsonFile) update(edit func(map[string]any)) error {
	next := maps.Clone(f.values)
	if next == nil {
		next = map[string]any{}
	}
	edit(next)
	if err := writeJSONFile(f.path, next); err != nil {
		return err
	}
	f.values = next
	return nil
}
