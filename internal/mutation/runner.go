// Package mutation runs backend writes for the console: receipts are
// uploaded before the record call, orphaned uploads are deleted when the
// record call fails, and a successful write invalidates the cached lists of
// its kind.
package mutation

import (
	"context"
	"errors"
	"fmt"

	"churchadmin/internal/core"
	"churchadmin/internal/log"
	"churchadmin/internal/metrics"
)

type Operation string

const (
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpInactivate Operation = "inactivate"
)

// Store is the slice of the backend a mutation touches.
type Store interface {
	Create(ctx context.Context, kind core.Kind, data map[string]any) (core.Record, error)
	Update(ctx context.Context, kind core.Kind, id string, data map[string]any) (core.Record, error)
	Inactivate(ctx context.Context, kind core.Kind, id string, data map[string]any) error
	Upload(ctx context.Context, kind core.Kind, files []core.File) ([]string, error)
	Delete(ctx context.Context, url string) error
}

// Invalidator drops cached lists of a kind.
type Invalidator interface {
	Invalidate(kind core.Kind)
}

// ImageURLsField is the record attribute holding uploaded receipt URLs.
const ImageURLsField = "imageUrls"

type Runner struct {
	store  Store
	cache  Invalidator
	logger *log.StructuredLogger
}

func NewRunner(store Store, cache Invalidator, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Discard()
	}
	return &Runner{
		store:  store,
		cache:  cache,
		logger: log.NewStructuredLogger(logger.WithComponent(log.ComponentMutation)),
	}
}

// Create uploads files, then creates the record with their URLs attached.
func (r *Runner) Create(ctx context.Context, kind core.Kind, data map[string]any, files []core.File) (core.Record, error) {
	var rec core.Record
	err := r.run(ctx, kind, OpCreate, "", data, files, func(data map[string]any) error {
		var err error
		rec, err = r.store.Create(ctx, kind, data)
		return err
	})
	return rec, err
}

// Update uploads files, then patches the record. New URLs are appended to
// the ones already present in data.
func (r *Runner) Update(ctx context.Context, kind core.Kind, id string, data map[string]any, files []core.File) (core.Record, error) {
	var rec core.Record
	err := r.run(ctx, kind, OpUpdate, id, data, files, func(data map[string]any) error {
		var err error
		rec, err = r.store.Update(ctx, kind, id, data)
		return err
	})
	return rec, err
}

func (r *Runner) Inactivate(ctx context.Context, kind core.Kind, id string, data map[string]any) error {
	return r.run(ctx, kind, OpInactivate, id, data, nil, func(data map[string]any) error {
		return r.store.Inactivate(ctx, kind, id, data)
	})
}

func (r *Runner) run(ctx context.Context, kind core.Kind, op Operation, id string, data map[string]any, files []core.File, call func(map[string]any) error) error {
	payload := make(map[string]any, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}

	var uploaded []string
	if len(files) > 0 {
		urls, err := r.store.Upload(ctx, kind, files)
		if err != nil {
			if !core.IsUploadError(err) {
				err = &core.UploadError{File: files[0].Name, Err: err}
			}
			// Partial uploads are not referenced by any record.
			r.cleanup(ctx, kind, urls)
			return r.finish(ctx, kind, op, id, err)
		}
		uploaded = urls
		payload[ImageURLsField] = append(existingURLs(payload[ImageURLsField]), urls...)
	}

	if err := call(payload); err != nil {
		r.cleanup(ctx, kind, uploaded)
		return r.finish(ctx, kind, op, id, err)
	}

	r.cache.Invalidate(kind)
	return r.finish(ctx, kind, op, id, nil)
}

func (r *Runner) finish(ctx context.Context, kind core.Kind, op Operation, id string, err error) error {
	outcome := Classify(err)
	metrics.RecordMutation(string(kind), string(op), string(outcome))
	r.logger.LogMutation(ctx, string(kind), string(op), id, string(outcome), err)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, kind, err)
	}
	return nil
}

// cleanup deletes uploads whose record call failed. Errors are logged only;
// the original failure is what the user sees.
func (r *Runner) cleanup(ctx context.Context, kind core.Kind, urls []string) {
	ctx = context.WithoutCancel(ctx)
	for _, u := range urls {
		if err := r.store.Delete(ctx, u); err != nil && !errors.Is(err, core.ErrNotFound) {
			r.logger.LogError(ctx, "Failed to delete orphaned upload", err, log.ComponentMutation, "delete_upload",
				log.NewFields().WithRecord(string(kind), ""))
		}
	}
}

func existingURLs(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, u := range t {
			if s, ok := u.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t != "" {
			return []string{t}
		}
	}
	return nil
}
