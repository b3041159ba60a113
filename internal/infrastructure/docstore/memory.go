package docstore

import (
	"context"
	"os"
	"reflect"
	"sort"
	"sync"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
)

// MemoryStats counts committed batches and written documents.
type MemoryStats struct {
	Commits int
	Writes  int
}

// MemoryStore keeps documents as encoded JSON, so readers always get copies
// with the same value types a JSON backend would return.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
	stats       MemoryStats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string][]byte)}
}

// Seed stores a document outside of any batch. It does not count as a write.
func (s *MemoryStore) Seed(collection, id string, data map[string]any) error {
	raw, err := sonic.Marshal(data)
	if err != nil {
		return crerr.Wrapf(err, "encode seed %s/%s", collection, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectionLocked(collection)[id] = raw
	return nil
}

// LoadSeedFile reads {"collection/path": {"docID": {...}}} and seeds every document.
func (s *MemoryStore) LoadSeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return crerr.Wrapf(err, "read seed file %s", path)
	}
	var seed map[string]map[string]map[string]any
	if err := sonic.Unmarshal(raw, &seed); err != nil {
		return crerr.Wrapf(err, "decode seed file %s", path)
	}
	for collection, docs := range seed {
		for id, data := range docs {
			if err := s.Seed(collection, id, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *MemoryStore) Stats() MemoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *MemoryStore) GetAll(_ context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, err := decodeMemoryDocument(id, docs[id])
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.collections[collection][id]
	if !ok {
		return Document{}, crerr.Wrapf(ErrNotFound, "%s/%s", collection, id)
	}
	return decodeMemoryDocument(id, raw)
}

func (s *MemoryStore) Query(ctx context.Context, collection, field string, value any) ([]Document, error) {
	docs, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	want, err := jsonValue(value)
	if err != nil {
		return nil, err
	}

	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if got, ok := doc.Data[field]; ok && reflect.DeepEqual(got, want) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Commit stages every op against a private copy and swaps it in only when all succeed.
func (s *MemoryStore) Commit(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]map[string]any)
	stagedKey := func(collection, id string) string { return collection + "\x00" + id }
	order := make([][2]string, 0, len(ops))

	for _, op := range ops {
		key := stagedKey(op.Collection, op.ID)
		current, seen := staged[key]
		if !seen {
			if raw, ok := s.collections[op.Collection][op.ID]; ok {
				doc, err := decodeMemoryDocument(op.ID, raw)
				if err != nil {
					return err
				}
				current = doc.Data
			}
			order = append(order, [2]string{op.Collection, op.ID})
		}

		fields, err := jsonObject(op.Fields)
		if err != nil {
			return err
		}

		switch op.Kind {
		case OpSet:
			current = fields
		case OpUpdate:
			if current == nil {
				return crerr.Wrapf(ErrNotFound, "update %s/%s", op.Collection, op.ID)
			}
			for k, v := range fields {
				current[k] = v
			}
		default:
			return crerr.Wrapf(ErrInvalidBatch, "unknown op kind %q", op.Kind)
		}
		staged[key] = current
	}

	encoded := make([][]byte, len(order))
	for i, target := range order {
		raw, err := sonic.Marshal(staged[stagedKey(target[0], target[1])])
		if err != nil {
			return crerr.Wrapf(err, "encode %s/%s", target[0], target[1])
		}
		encoded[i] = raw
	}
	for i, target := range order {
		s.collectionLocked(target[0])[target[1]] = encoded[i]
	}

	s.stats.Commits++
	s.stats.Writes += len(ops)
	return nil
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}

func (s *MemoryStore) collectionLocked(collection string) map[string][]byte {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string][]byte)
		s.collections[collection] = docs
	}
	return docs
}

func decodeMemoryDocument(id string, raw []byte) (Document, error) {
	data := map[string]any{}
	if err := sonic.Unmarshal(raw, &data); err != nil {
		return Document{}, crerr.Wrapf(err, "decode document %s", id)
	}
	return Document{ID: id, Data: data}, nil
}

// jsonObject normalizes fields to the types produced by decoding JSON.
func jsonObject(fields map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if len(fields) == 0 {
		return out, nil
	}
	raw, err := sonic.Marshal(fields)
	if err != nil {
		return nil, crerr.Wrap(err, "encode fields")
	}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, crerr.Wrap(err, "decode fields")
	}
	return out, nil
}

func jsonValue(value any) (any, error) {
	raw, err := sonic.Marshal(value)
	if err != nil {
		return nil, crerr.Wrap(err, "encode query value")
	}
	var out any
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, crerr.Wrap(err, "decode query value")
	}
	return out, nil
}
