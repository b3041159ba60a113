// Package docstore is a small document database abstraction: collections of
// JSON documents addressed by id, equality queries on a top-level field and
// atomic multi-document batches. Reads and batch commits are not wrapped in a
// shared transaction.
package docstore

import (
	"context"
	"strings"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
)

var (
	ErrNotFound     = crerr.New("document not found")
	ErrInvalidBatch = crerr.New("invalid batch operation")
)

// Document is one stored JSON object.
type Document struct {
	ID   string
	Data map[string]any
}

// Decode converts the document body into target through its JSON form.
func (d Document) Decode(target any) error {
	raw, err := sonic.Marshal(d.Data)
	if err != nil {
		return crerr.Wrapf(err, "encode document %s", d.ID)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return crerr.Wrapf(err, "decode document %s", d.ID)
	}
	return nil
}

type OpKind string

const (
	// OpUpdate merges top-level fields into an existing document.
	OpUpdate OpKind = "update"
	// OpSet creates or replaces a document.
	OpSet OpKind = "set"
)

type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Fields     map[string]any
}

func (o Op) validate() error {
	if strings.TrimSpace(o.Collection) == "" || strings.TrimSpace(o.ID) == "" {
		return crerr.Wrapf(ErrInvalidBatch, "%s requires collection and id", o.Kind)
	}
	if o.Kind != OpUpdate && o.Kind != OpSet {
		return crerr.Wrapf(ErrInvalidBatch, "unknown op kind %q", o.Kind)
	}
	return nil
}

// Store is implemented by every backend.
type Store interface {
	GetAll(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection, field string, value any) ([]Document, error)
	// Commit applies all ops atomically: either every op is visible or none.
	Commit(ctx context.Context, ops []Op) error
	Close(ctx context.Context) error
}

// Batch collects writes for a single atomic Commit.
type Batch struct {
	store Store
	ops   []Op
}

func NewBatch(store Store) *Batch {
	return &Batch{store: store}
}

func (b *Batch) Update(collection, id string, fields map[string]any) *Batch {
	b.ops = append(b.ops, Op{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields})
	return b
}

func (b *Batch) Set(collection, id string, fields map[string]any) *Batch {
	b.ops = append(b.ops, Op{Kind: OpSet, Collection: collection, ID: id, Fields: fields})
	return b
}

func (b *Batch) Len() int {
	return len(b.ops)
}

// Commit writes the collected ops. An empty batch is a no-op.
func (b *Batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	for _, op := range b.ops {
		if err := op.validate(); err != nil {
			return err
		}
	}
	return b.store.Commit(ctx, b.ops)
}

// Path joins collection path segments, e.g. Path("competitions", id, "matches").
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}
