// Package store persists one homogeneous collection of records as a single
// JSON array file, guarded by an advisory lock on a sibling ".lock" file.
//
// Every Load and every Save takes the lock for that one operation only.
// Create, Update and Delete are a Load followed by a Save, so two writers
// that interleave can lose an update: both read the same state and the later
// save wins. That is the default LockPerOperation mode. LockSerialized holds
// a single lock across the whole read-modify-write instead.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Record is one flat field mapping. Every record carries a string "id".
type Record map[string]any

// Filter maps field names to the value a record must hold for that field.
type Filter map[string]any

type LockMode string

const (
	LockPerOperation LockMode = "per-operation"
	LockSerialized   LockMode = "serialized"
)

const DefaultLockTimeout = 10 * time.Second

// Observer wraps a logical store operation, typically to record metrics.
type Observer interface {
	ObserveStore(collection, op string, fn func() error) error
}

type noopObserver struct{}

func (noopObserver) ObserveStore(_, _ string, fn func() error) error { return fn() }

type Options struct {
	LockTimeout time.Duration
	Mode        LockMode
	Logger      *slog.Logger
	Observer    Observer
}

type Store struct {
	path       string
	lockPath   string
	collection string
	timeout    time.Duration
	mode       LockMode
	log        *slog.Logger
	obs        Observer
	tracer     trace.Tracer

	// beforeSave runs between the load and the save of a per-operation
	// read-modify-write.
	beforeSave func()
}

// New opens the store backed by path, creating the parent directory and an
// empty array file when they do not exist yet.
func New(path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store: empty file path")
	}

	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.Mode == "" {
		opts.Mode = LockPerOperation
	}
	if opts.Mode != LockPerOperation && opts.Mode != LockSerialized {
		return nil, fmt.Errorf("store: unknown lock mode %q", opts.Mode)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}

	if err := ensureFile(path); err != nil {
		return nil, err
	}

	base := filepath.Base(path)

	return &Store{
		path:       path,
		lockPath:   path + lockSuffix,
		collection: strings.TrimSuffix(base, filepath.Ext(base)),
		timeout:    opts.LockTimeout,
		mode:       opts.Mode,
		log:        opts.Logger.With("file", path),
		obs:        opts.Observer,
		tracer:     otel.Tracer("github.com/geocoder89/perfeval/internal/store"),
	}, nil
}

func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: create data dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("store: create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString("[]\n"); err != nil {
		return fmt.Errorf("store: init %s: %w", path, err)
	}
	return nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Mode() LockMode { return s.mode }

// Load returns every record in the file. Any failure, lock timeout included,
// is logged and yields an empty slice.
func (s *Store) Load(ctx context.Context) []Record {
	ctx, span := s.startSpan(ctx, "load")
	defer span.End()

	records, err := s.load(ctx)
	if err != nil {
		s.fail(ctx, span, "load", err)
		return []Record{}
	}
	return records
}

// Save overwrites the file with records. It reports false on any failure.
func (s *Store) Save(ctx context.Context, records []Record) bool {
	ctx, span := s.startSpan(ctx, "save")
	defer span.End()

	if err := s.save(ctx, records); err != nil {
		return s.fail(ctx, span, "save", err)
	}
	return true
}

func (s *Store) FindByID(ctx context.Context, id string) (Record, bool) {
	for _, r := range s.Load(ctx) {
		if hasID(r, id) {
			return r, true
		}
	}
	return nil, false
}

// FindBy returns the records whose fields equal every filter value.
func (s *Store) FindBy(ctx context.Context, filters Filter) []Record {
	out := []Record{}
	for _, r := range s.Load(ctx) {
		if matches(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

// Create appends rec unless a record with the same id already exists.
func (s *Store) Create(ctx context.Context, rec Record) bool {
	ctx, span := s.startSpan(ctx, "create")
	defer span.End()

	id := rec["id"]
	err := s.mutate(ctx, "create", func(records []Record) ([]Record, error) {
		for _, r := range records {
			if valuesEqual(r["id"], id) {
				return nil, fmt.Errorf("%w: %v", ErrDuplicateID, id)
			}
		}
		return append(records, rec), nil
	})
	if err != nil {
		return s.fail(ctx, span, "create", err, "id", id)
	}
	return true
}

// Update merges fields into the first record with the given id. Keys present
// in fields overwrite, all other keys are preserved.
func (s *Store) Update(ctx context.Context, id string, fields Record) bool {
	return s.TryUpdate(ctx, id, fields) == nil
}

// TryUpdate is Update returning the failure. A missing id yields ErrNotFound;
// lock timeouts and I/O errors keep their own class.
func (s *Store) TryUpdate(ctx context.Context, id string, fields Record) error {
	ctx, span := s.startSpan(ctx, "update")
	defer span.End()

	err := s.mutate(ctx, "update", func(records []Record) ([]Record, error) {
		for _, r := range records {
			if !hasID(r, id) {
				continue
			}
			for k, v := range fields {
				r[k] = v
			}
			return records, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	})
	if err != nil {
		s.fail(ctx, span, "update", err, "id", id)
	}
	return err
}

// Delete removes every record with the given id.
func (s *Store) Delete(ctx context.Context, id string) bool {
	return s.TryDelete(ctx, id) == nil
}

// TryDelete is Delete returning the failure, classified like TryUpdate.
func (s *Store) TryDelete(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "delete")
	defer span.End()

	err := s.mutate(ctx, "delete", func(records []Record) ([]Record, error) {
		kept := make([]Record, 0, len(records))
		for _, r := range records {
			if !hasID(r, id) {
				kept = append(kept, r)
			}
		}
		if len(kept) == len(records) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return kept, nil
	})
	if err != nil {
		s.fail(ctx, span, "delete", err, "id", id)
	}
	return err
}

// Ping checks that the file can be locked and parsed.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

type mutation func(records []Record) ([]Record, error)

func (s *Store) mutate(ctx context.Context, op string, fn mutation) error {
	return s.obs.ObserveStore(s.collection, op, func() error {
		if s.mode == LockSerialized {
			return s.mutateSerialized(ctx, fn)
		}

		// A failed read aborts the mutation; saving on top of an empty
		// read would wipe the collection.
		records, err := s.load(ctx)
		if err != nil {
			return err
		}

		next, err := fn(records)
		if err != nil {
			return err
		}

		if s.beforeSave != nil {
			s.beforeSave()
		}

		return s.save(ctx, next)
	})
}

func (s *Store) mutateSerialized(ctx context.Context, fn mutation) error {
	fl, err := acquire(ctx, s.lockPath, s.timeout)
	if err != nil {
		return err
	}
	defer fl.Unlock()

	records, err := s.readLocked()
	if err != nil {
		return err
	}

	next, err := fn(records)
	if err != nil {
		return err
	}

	return s.writeLocked(next)
}

func (s *Store) load(ctx context.Context) ([]Record, error) {
	var out []Record

	err := s.obs.ObserveStore(s.collection, "load", func() error {
		fl, err := acquire(ctx, s.lockPath, s.timeout)
		if err != nil {
			return err
		}
		defer fl.Unlock()

		out, err = s.readLocked()
		return err
	})

	return out, err
}

func (s *Store) save(ctx context.Context, records []Record) error {
	return s.obs.ObserveStore(s.collection, "save", func() error {
		fl, err := acquire(ctx, s.lockPath, s.timeout)
		if err != nil {
			return err
		}
		defer fl.Unlock()

		if err := s.writeLocked(records); err != nil {
			return err
		}

		s.log.DebugContext(ctx, "saved data", "records", len(records))
		return nil
	})
}

func (s *Store) readLocked() ([]Record, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var raw []Record
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, s.path, err)
	}

	records := make([]Record, 0, len(raw))
	for _, r := range raw {
		if r != nil {
			records = append(records, r)
		}
	}
	return records, nil
}

// writeLocked writes to a temp file and renames it over the target, so a
// crash mid-write leaves the previous contents intact.
func (s *Store) writeLocked(records []Record) error {
	if records == nil {
		records = []Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "store."+op, trace.WithAttributes(
		attribute.String("store.collection", s.collection),
		attribute.String("store.lock_mode", string(s.mode)),
	))
}

// fail logs err and records it on span. It always returns false so callers
// can return its result directly.
func (s *Store) fail(ctx context.Context, span trace.Span, op string, err error, attrs ...any) bool {
	class := Classify(err)

	span.RecordError(err)
	span.SetStatus(codes.Error, class)

	level := slog.LevelError
	if errors.Is(err, ErrDuplicateID) || errors.Is(err, ErrNotFound) {
		level = slog.LevelWarn
	}

	args := append([]any{"op", op, "class", class, "err", err}, attrs...)
	s.log.Log(ctx, level, "store operation failed", args...)
	return false
}

func hasID(r Record, id string) bool {
	v, ok := r["id"].(string)
	return ok && v == id
}
