package store

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type firestoreStore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) Store {
	return &firestoreStore{client: client}
}

func (fs *firestoreStore) Get(ctx context.Context, collection, id string, v any) error {
	snap, err := fs.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return snap.DataTo(v)
}

func (fs *firestoreStore) Add(ctx context.Context, collection string, data any) (string, error) {
	ref, _, err := fs.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (fs *firestoreStore) Set(ctx context.Context, collection, id string, data any) error {
	_, err := fs.client.Collection(collection).Doc(id).Set(ctx, data)
	return err
}

func (fs *firestoreStore) Update(ctx context.Context, collection, id string, updates []Update) error {
	_, err := fs.client.Collection(collection).Doc(id).Update(ctx, toFirestoreUpdates(updates))
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (fs *firestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := fs.client.Collection(collection).Doc(id).Delete(ctx)
	return err
}

func (fs *firestoreStore) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	fq := fs.client.Collection(collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, f.Op, f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	var snaps []Snapshot
	it := fq.Documents(ctx)
	defer it.Stop()
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, firestoreSnapshot{doc: doc})
	}
	return snaps, nil
}

func (fs *firestoreStore) Batch() Batch {
	return &firestoreBatch{client: fs.client, batch: fs.client.Batch()}
}

type firestoreSnapshot struct {
	doc *firestore.DocumentSnapshot
}

func (s firestoreSnapshot) ID() string {
	return s.doc.Ref.ID
}

func (s firestoreSnapshot) DataTo(v any) error {
	return s.doc.DataTo(v)
}

type firestoreBatch struct {
	client *firestore.Client
	batch  *firestore.WriteBatch
}

func (b *firestoreBatch) Set(collection, id string, data any) {
	b.batch.Set(b.client.Collection(collection).Doc(id), data)
}

func (b *firestoreBatch) Create(collection string, data any) string {
	ref := b.client.Collection(collection).NewDoc()
	b.batch.Set(ref, data)
	return ref.ID
}

func (b *firestoreBatch) Update(collection, id string, updates []Update) {
	b.batch.Update(b.client.Collection(collection).Doc(id), toFirestoreUpdates(updates))
}

func (b *firestoreBatch) Delete(collection, id string) {
	b.batch.Delete(b.client.Collection(collection).Doc(id))
}

func (b *firestoreBatch) Commit(ctx context.Context) error {
	_, err := b.batch.Commit(ctx)
	return err
}

func toFirestoreUpdates(updates []Update) []firestore.Update {
	fu := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		value := u.Value
		if inc, ok := value.(incrementValue); ok {
			value = firestore.Increment(inc.n)
		}
		fu = append(fu, firestore.Update{Path: u.Field, Value: value})
	}
	return fu
}
