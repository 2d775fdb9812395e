// Package store abstracts the document database behind collection/query
// semantics: per-document CRUD, filtered queries and all-or-nothing batched
// writes. The production implementation is backed by Firestore, tests run
// against the in-memory implementation.
package store

import (
	"context"
	"errors"
)

const (
	Bids             = "bids"
	Games            = "games"
	GameParticipants = "gameParticipants"
	StagePicks       = "stagePicks"
	ActivityLogs     = "activityLogs"
	Users            = "users"
)

var ErrNotFound = errors.New("store: document not found")

type Filter struct {
	Field string
	Op    string // "==", "in", "<", "<=", ">", ">="
	Value any
}

type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Update mutates a single field. Field may be a dotted path into a nested
// document ("slipstreamData.totalTimeLostSeconds").
type Update struct {
	Field string
	Value any
}

type incrementValue struct {
	n int64
}

// Increment returns an update value that atomically adds n to a numeric field.
func Increment(n int64) any {
	return incrementValue{n: n}
}

type Snapshot interface {
	ID() string
	DataTo(v any) error
}

// Batch queues writes that are committed together. A failed commit applies
// none of the queued writes.
type Batch interface {
	Set(collection, id string, data any)
	Create(collection string, data any) string
	Update(collection, id string, updates []Update)
	Delete(collection, id string)
	Commit(ctx context.Context) error
}

type Store interface {
	// Get decodes the document into v, returning ErrNotFound when absent.
	Get(ctx context.Context, collection, id string, v any) error
	// Add creates a document under a generated id and returns that id.
	Add(ctx context.Context, collection string, data any) (string, error)
	Set(ctx context.Context, collection, id string, data any) error
	Update(ctx context.Context, collection, id string, updates []Update) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	Batch() Batch
}
