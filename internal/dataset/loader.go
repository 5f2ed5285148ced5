// Package dataset loads the college CSV tables and memoizes them for the
// lifetime of a Loader.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Dataset names.
const (
	Students         = "students"
	ExamSchedule     = "exam_schedule"
	Timetable        = "timetable"
	Faculty          = "faculty"
	AcademicCalendar = "academic_calendar"
	PreviousPapers   = "previous_papers"
	StudentResults   = "student_results"
)

var files = map[string]string{
	Students:         "students.csv",
	ExamSchedule:     "exam_schedule.csv",
	Timetable:        "timetable.csv",
	Faculty:          "faculty.csv",
	AcademicCalendar: "academic_calendar.csv",
	PreviousPapers:   "previous_papers.csv",
	StudentResults:   "student_results.csv",
}

// Names returns every known dataset name in sorted order.
func Names() []string {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Loader reads datasets from a directory. Results are cached until Clear is
// called or, when a TTL was given, until the entry expires.
type Loader struct {
	dir    string
	memo   *cache.Cache
	group  singleflight.Group
	logger *slog.Logger

	mu  sync.Mutex
	gen uint64 // bumped by Clear; loads begun under an older gen are not cached
}

// NewLoader creates a Loader rooted at dir. A ttl <= 0 caches forever.
func NewLoader(dir string, ttl time.Duration) *Loader {
	exp, cleanup := cache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		exp, cleanup = ttl, ttl
	}
	return &Loader{
		dir:    dir,
		memo:   cache.New(exp, cleanup),
		logger: slog.Default(),
	}
}

// Dir returns the directory the loader reads from.
func (l *Loader) Dir() string { return l.dir }

// Path returns the on-disk path for a dataset name.
func (l *Loader) Path(name string) (string, error) {
	file, ok := files[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return filepath.Join(l.dir, file), nil
}

// Rows returns the records of a dataset in file order. The returned slice is
// shared with the cache and must not be modified.
func (l *Loader) Rows(name string) ([]Row, error) {
	v, err := l.load("rows:"+name, func() (any, error) {
		return l.read(name)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Row), nil
}

// Map indexes a dataset by keyField. Rows without the field are skipped and a
// later row with a duplicate key replaces an earlier one.
func (l *Loader) Map(name, keyField string) (map[string]Row, error) {
	v, err := l.load("map:"+name+":"+keyField, func() (any, error) {
		rows, err := l.Rows(name)
		if err != nil {
			return nil, err
		}
		m := make(map[string]Row, len(rows))
		for _, row := range rows {
			k, ok := row[keyField]
			if !ok {
				continue
			}
			m[k] = row
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]Row), nil
}

// Clear drops every memoized dataset and index. Loads still in flight finish
// for their own callers but are not cached, so the next access rereads the
// files.
func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.memo.Flush()
}

// load returns the cached value for key or runs fill once for all concurrent
// callers of the same generation. Errors are not cached.
func (l *Loader) load(key string, fill func() (any, error)) (any, error) {
	if v, ok := l.memo.Get(key); ok {
		return v, nil
	}

	l.mu.Lock()
	gen := l.gen
	l.mu.Unlock()

	v, err, _ := l.group.Do(fmt.Sprintf("%s@%d", key, gen), func() (any, error) {
		if v, ok := l.memo.Get(key); ok {
			return v, nil
		}
		v, err := fill()
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if l.gen == gen {
			l.memo.Set(key, v, cache.DefaultExpiration)
		}
		l.mu.Unlock()
		return v, nil
	})
	return v, err
}

// Preload reads all datasets concurrently and returns the first failure.
// Datasets not yet started when ctx is done are skipped.
func (l *Loader) Preload(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range Names() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := l.Rows(name)
			if err != nil {
				return err
			}
			l.logger.Debug("dataset loaded", "dataset", name, "rows", len(rows))
			return nil
		})
	}
	return g.Wait()
}

func (l *Loader) read(name string) ([]Row, error) {
	path, err := l.Path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", name, err)
	}
	defer f.Close()

	rows, err := parseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", name, err)
	}
	return rows, nil
}

func parseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return []Row{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows := []Row{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i >= len(rec) {
				break
			}
			row[col] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}
