package repository

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collectionCombinations = "combinations"

// Firestore implements Repository with Cloud Firestore
type Firestore struct {
	client     *firestore.Client
	collection string
}

// FirestoreOption is a functional option for Firestore repository
type FirestoreOption func(*Firestore)

// WithCollection overrides the collection name of combinations
func WithCollection(name string) FirestoreOption {
	return func(f *Firestore) {
		f.collection = name
	}
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string, opts ...FirestoreOption) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("project ID is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}

	f := &Firestore{
		client:     client,
		collection: collectionCombinations,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// documentID converts a key into a valid document ID. Standard base64 may
// contain '/', which Firestore does not allow in IDs.
func documentID(key model.CombinationKey) string {
	return strings.NewReplacer("/", "_", "+", "-").Replace(string(key))
}

func (f *Firestore) GetCombination(ctx context.Context, key model.CombinationKey) (*model.Combination, error) {
	doc, err := f.client.Collection(f.collection).Doc(documentID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get combination", goerr.V("key", key))
	}

	var c model.Combination
	if err := doc.DataTo(&c); err != nil {
		return nil, goerr.Wrap(err, "failed to decode combination", goerr.V("key", key))
	}
	return &c, nil
}

func (f *Firestore) PutCombination(ctx context.Context, c *model.Combination) error {
	if err := validateCombination(c); err != nil {
		return err
	}

	// Create fails if the document exists, which keeps records immutable
	_, err := f.client.Collection(f.collection).Doc(documentID(c.Key)).Create(ctx, c)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.Wrap(ErrAlreadyExists, "failed to put combination", goerr.V("key", c.Key))
		}
		return goerr.Wrap(err, "failed to put combination", goerr.V("key", c.Key))
	}

	return nil
}

func (f *Firestore) ListCombinations(ctx context.Context, offset, limit int) ([]*model.Combination, error) {
	if offset < 0 {
		offset = 0
	}

	iter := f.client.Collection(f.collection).
		OrderBy("created_at", firestore.Desc).
		Offset(offset).
		Limit(normalizeLimit(limit)).
		Documents(ctx)
	defer iter.Stop()

	var combinations []*model.Combination
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate combinations")
		}

		var c model.Combination
		if err := doc.DataTo(&c); err != nil {
			return nil, goerr.Wrap(err, "failed to decode combination", goerr.V("doc_id", doc.Ref.ID))
		}
		combinations = append(combinations, &c)
	}

	return combinations, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}
