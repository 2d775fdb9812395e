package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore mirrors the Firestore adapter semantics for tests: documents
// are stored as decoded JSON maps, so struct field names resolve through the
// same camelCase paths the production store uses.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func NewMemory() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]map[string]any)}
}

func (ms *MemoryStore) Get(ctx context.Context, collection, id string, v any) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	doc, ok := ms.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	return decodeDocument(doc, v)
}

func (ms *MemoryStore) Add(ctx context.Context, collection string, data any) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	id := uuid.New().String()
	if err := ms.setLocked(collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (ms *MemoryStore) Set(ctx context.Context, collection, id string, data any) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.setLocked(collection, id, data)
}

func (ms *MemoryStore) Update(ctx context.Context, collection, id string, updates []Update) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.updateLocked(collection, id, updates)
}

func (ms *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.collections[collection], id)
	return nil
}

func (ms *MemoryStore) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var matches []memorySnapshot
	for id, doc := range ms.collections[collection] {
		if matchesFilters(doc, q.Filters) {
			matches = append(matches, memorySnapshot{id: id, data: cloneDocument(doc)})
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(matches, func(i, j int) bool {
			less := lessValue(fieldValue(matches[i].data, q.OrderBy), fieldValue(matches[j].data, q.OrderBy))
			if q.Desc {
				return !less
			}
			return less
		})
	} else {
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].id < matches[j].id })
	}

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	snaps := make([]Snapshot, 0, len(matches))
	for _, m := range matches {
		snaps = append(snaps, m)
	}
	return snaps, nil
}

func (ms *MemoryStore) Batch() Batch {
	return &memoryBatch{store: ms}
}

// Count reports the number of documents in a collection. Test helper only.
func (ms *MemoryStore) Count(collection string) int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.collections[collection])
}

func (ms *MemoryStore) setLocked(collection, id string, data any) error {
	doc, err := encodeDocument(data)
	if err != nil {
		return err
	}
	if ms.collections[collection] == nil {
		ms.collections[collection] = make(map[string]map[string]any)
	}
	ms.collections[collection][id] = doc
	return nil
}

func (ms *MemoryStore) updateLocked(collection, id string, updates []Update) error {
	doc, ok := ms.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for _, u := range updates {
		if inc, isInc := u.Value.(incrementValue); isInc {
			current, _ := fieldValue(doc, u.Field).(float64)
			setFieldValue(doc, u.Field, current+float64(inc.n))
			continue
		}
		normalized, err := normalizeValue(u.Value)
		if err != nil {
			return err
		}
		setFieldValue(doc, u.Field, normalized)
	}
	return nil
}

type memorySnapshot struct {
	id   string
	data map[string]any
}

func (s memorySnapshot) ID() string {
	return s.id
}

func (s memorySnapshot) DataTo(v any) error {
	return decodeDocument(s.data, v)
}

type memoryOp struct {
	kind       string // "set", "update", "delete"
	collection string
	id         string
	data       any
	updates    []Update
}

type memoryBatch struct {
	store *MemoryStore
	ops   []memoryOp
}

func (b *memoryBatch) Set(collection, id string, data any) {
	b.ops = append(b.ops, memoryOp{kind: "set", collection: collection, id: id, data: data})
}

func (b *memoryBatch) Create(collection string, data any) string {
	id := uuid.New().String()
	b.Set(collection, id, data)
	return id
}

func (b *memoryBatch) Update(collection, id string, updates []Update) {
	b.ops = append(b.ops, memoryOp{kind: "update", collection: collection, id: id, updates: updates})
}

func (b *memoryBatch) Delete(collection, id string) {
	b.ops = append(b.ops, memoryOp{kind: "delete", collection: collection, id: id})
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	// Validate update targets first so a failed commit applies nothing.
	for _, op := range b.ops {
		if op.kind == "update" {
			if _, ok := b.store.collections[op.collection][op.id]; !ok {
				return fmt.Errorf("batch update %s/%s: %w", op.collection, op.id, ErrNotFound)
			}
		}
	}

	for _, op := range b.ops {
		switch op.kind {
		case "set":
			if err := b.store.setLocked(op.collection, op.id, op.data); err != nil {
				return err
			}
		case "update":
			if err := b.store.updateLocked(op.collection, op.id, op.updates); err != nil {
				return err
			}
		case "delete":
			delete(b.store.collections[op.collection], op.id)
		}
	}
	b.ops = nil
	return nil
}

func encodeDocument(data any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "id")
	return doc, nil
}

func decodeDocument(doc map[string]any, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func cloneDocument(doc map[string]any) map[string]any {
	clone, _ := encodeDocument(doc)
	return clone
}

func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

func matchesFilters(doc map[string]any, filters []Filter) bool {
	for _, f := range filters {
		actual := fieldValue(doc, f.Field)
		switch f.Op {
		case "==":
			expected, err := normalizeValue(f.Value)
			if err != nil || !equalValue(actual, expected) {
				return false
			}
		case "in":
			candidates, err := normalizeValue(f.Value)
			if err != nil {
				return false
			}
			list, ok := candidates.([]any)
			if !ok {
				return false
			}
			found := false
			for _, c := range list {
				if equalValue(actual, c) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case "<", "<=", ">", ">=":
			expected, err := normalizeValue(f.Value)
			if err != nil {
				return false
			}
			if !compareValue(actual, expected, f.Op) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func equalValue(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareValue(a, b any, op string) bool {
	less := lessValue(a, b)
	greater := lessValue(b, a)
	switch op {
	case "<":
		return less
	case "<=":
		return !greater
	case ">":
		return greater
	case ">=":
		return !less
	}
	return false
}

func lessValue(a, b any) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

func fieldValue(doc map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

func setFieldValue(doc map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
