// Package store is the SportsLeague document store: JSON documents
// addressed by partition key and id, with whole-document upserts.
//
// Three backends share one [Store] implementation and differ only in how
// they hold bytes:
//
//   - memory: a process-local map, the default for development and tests
//   - postgres: a JSONB table keyed by (partition_key, id)
//   - redis: one string key per document plus a set of ids per partition
//
// Missing documents surface as [sserr.CodeNotFoundResource]. Query
// ordering is applied here, after the backend returns a partition, so
// every backend orders identically.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

const tracerName = "github.com/ahems/SportsLeague/pkg/store"

// Store reads and writes documents. Implementations are safe for
// concurrent use.
type Store interface {
	// Get decodes the document into out.
	Get(ctx context.Context, partition, id string, out any) error
	// Query decodes every document in the partition into out, which must
	// point to a slice. An empty partition yields an empty slice.
	Query(ctx context.Context, partition string, q Query, out any) error
	// Upsert encodes doc and stores it, replacing any previous version.
	Upsert(ctx context.Context, partition, id string, doc any) error
	// Delete removes the document.
	Delete(ctx context.Context, partition, id string) error
	Health(ctx context.Context) error
	Close() error
}

// Query orders a partition by a top-level JSON field. An empty OrderBy
// orders by id.
type Query struct {
	OrderBy    string
	Descending bool
}

// backend stores raw document bodies.
type backend interface {
	name() string
	get(ctx context.Context, partition, id string) ([]byte, error)
	list(ctx context.Context, partition string) ([][]byte, error)
	put(ctx context.Context, partition, id string, body []byte) error
	// del returns a not-found error when nothing was removed.
	del(ctx context.Context, partition, id string) error
	health(ctx context.Context) error
	close() error
}

// Option configures a document store.
type Option func(*documentStore)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *documentStore) { s.logger = l }
}

// WithTracer sets the tracer. Defaults to the global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *documentStore) { s.tracer = t }
}

type documentStore struct {
	backend backend
	logger  *slog.Logger
	tracer  trace.Tracer
}

func newDocumentStore(b backend, opts ...Option) *documentStore {
	s := &documentStore{backend: b, logger: slog.Default(), tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...Option) Store {
	return newDocumentStore(newMemoryBackend(), opts...)
}

func (s *documentStore) Get(ctx context.Context, partition, id string, out any) error {
	ctx, span := s.startSpan(ctx, "Get", partition)
	defer span.End()
	span.SetAttributes(attribute.String("store.id", id))

	if err := checkKey(partition, id); err != nil {
		return s.fail(span, err)
	}
	body, err := s.backend.get(ctx, partition, id)
	if err != nil {
		return s.fail(span, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return s.fail(span, sserr.Wrapf(err, sserr.CodeInternal,
			"store: %s/%s is not valid JSON", partition, id))
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *documentStore) Query(ctx context.Context, partition string, q Query, out any) error {
	ctx, span := s.startSpan(ctx, "Query", partition)
	defer span.End()
	span.SetAttributes(
		attribute.String("store.order_by", q.OrderBy),
		attribute.Bool("store.descending", q.Descending),
	)

	if partition == "" {
		return s.fail(span, sserr.Required("partition"))
	}
	bodies, err := s.backend.list(ctx, partition)
	if err != nil {
		return s.fail(span, err)
	}
	bodies, err = sortDocuments(bodies, q)
	if err != nil {
		return s.fail(span, sserr.Wrapf(err, sserr.CodeInternal,
			"store: partition %s holds an invalid document", partition))
	}
	span.SetAttributes(attribute.Int("store.count", len(bodies)))

	array := append([]byte{'['}, bytes.Join(bodies, []byte{','})...)
	array = append(array, ']')
	if err := json.Unmarshal(array, out); err != nil {
		return s.fail(span, sserr.Wrapf(err, sserr.CodeInternal,
			"store: failed to decode partition %s", partition))
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *documentStore) Upsert(ctx context.Context, partition, id string, doc any) error {
	ctx, span := s.startSpan(ctx, "Upsert", partition)
	defer span.End()
	span.SetAttributes(attribute.String("store.id", id))

	if err := checkKey(partition, id); err != nil {
		return s.fail(span, err)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return s.fail(span, sserr.Wrap(err, sserr.CodeValidation, "store: document cannot be encoded"))
	}
	if err := s.backend.put(ctx, partition, id, body); err != nil {
		return s.fail(span, err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *documentStore) Delete(ctx context.Context, partition, id string) error {
	ctx, span := s.startSpan(ctx, "Delete", partition)
	defer span.End()
	span.SetAttributes(attribute.String("store.id", id))

	if err := checkKey(partition, id); err != nil {
		return s.fail(span, err)
	}
	if err := s.backend.del(ctx, partition, id); err != nil {
		return s.fail(span, err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *documentStore) Health(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Health", "")
	defer span.End()
	if err := s.backend.health(ctx); err != nil {
		return s.fail(span, err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *documentStore) Close() error {
	s.logger.Info("closing document store", "backend", s.backend.name())
	return s.backend.close()
}

func (s *documentStore) startSpan(ctx context.Context, op, partition string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "store."+op, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String("store.backend", s.backend.name()),
		attribute.String("store.partition", partition),
	)
	return ctx, span
}

// fail records err on the span. Not-found is an expected outcome and
// leaves the span status unset.
func (s *documentStore) fail(span trace.Span, err error) error {
	if sserr.IsNotFound(err) {
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func checkKey(partition, id string) error {
	switch {
	case partition == "":
		return sserr.Required("partition")
	case id == "":
		return sserr.Required("id")
	}
	return nil
}

func notFound(partition, id string) *sserr.Error {
	return sserr.Newf(sserr.CodeNotFoundResource, "store: %s/%s not found", partition, id)
}
