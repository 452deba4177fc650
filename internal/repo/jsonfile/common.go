// Package jsonfile implements typed repositories on top of store.Store, one
// JSON file per entity type.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/perfeval/internal/repo"
	"github.com/geocoder89/perfeval/internal/store"
)

// decodeAll converts records into T, skipping (and logging) any record whose
// fields have the wrong types. fill, when set, patches a record before decode.
func decodeAll[T any](ctx context.Context, log *slog.Logger, records []store.Record, fill func(store.Record)) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if fill != nil {
			fill(r)
		}
		v, err := store.Decode[T](r)
		if err != nil {
			log.WarnContext(ctx, "skipping malformed record", "id", r["id"], "err", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

func decodeOne[T any](r store.Record, fill func(store.Record)) (T, error) {
	if fill != nil {
		fill(r)
	}
	return store.Decode[T](r)
}

func create(ctx context.Context, s *store.Store, v any) error {
	rec, err := store.Encode(v)
	if err != nil {
		return err
	}
	if !s.Create(ctx, rec) {
		return repo.ErrPersist
	}
	return nil
}

func update(ctx context.Context, s *store.Store, id string, patch any) error {
	fields, err := store.Encode(patch)
	if err != nil {
		return err
	}
	return writeError(s.TryUpdate(ctx, id, fields))
}

func remove(ctx context.Context, s *store.Store, id string) error {
	return writeError(s.TryDelete(ctx, id))
}

// writeError maps a store failure to the repo sentinels. Only a missing id is
// ErrNotFound; lock timeouts and unreadable files are ErrPersist.
func writeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return repo.ErrNotFound
	default:
		return fmt.Errorf("%w: %v", repo.ErrPersist, err)
	}
}

func setDefault(r store.Record, key string, v any) {
	if _, ok := r[key]; !ok {
		r[key] = v
	}
}
