package bug

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps bugs in a Firestore collection. Equality filters are pushed into the
// query; search, sorting and pagination run through Execute.
type FirestoreStore struct {
	client           *firestore.Client
	collectionPrefix string
}

// NewFirestoreStore wraps an existing client. prefix namespaces the collections.
func NewFirestoreStore(client *firestore.Client, prefix string) *FirestoreStore {
	return &FirestoreStore{client: client, collectionPrefix: prefix}
}

type bugDocument struct {
	ID               string              `firestore:"id"`
	Seq              int64               `firestore:"seq"`
	Title            string              `firestore:"title"`
	Description      string              `firestore:"description"`
	Status           string              `firestore:"status"`
	Priority         string              `firestore:"priority"`
	ReportedBy       string              `firestore:"reportedBy"`
	AssignedTo       string              `firestore:"assignedTo"`
	StepsToReproduce []string            `firestore:"stepsToReproduce"`
	Environment      environmentDocument `firestore:"environment"`
	CreatedAt        time.Time           `firestore:"createdAt"`
	UpdatedAt        time.Time           `firestore:"updatedAt"`
}

type environmentDocument struct {
	OS      string `firestore:"os"`
	Browser string `firestore:"browser"`
	Version string `firestore:"version"`
}

func toDocument(b Bug) bugDocument {
	return bugDocument{
		ID:               b.ID.String(),
		Seq:              b.Seq,
		Title:            b.Title,
		Description:      b.Description,
		Status:           string(b.Status),
		Priority:         string(b.Priority),
		ReportedBy:       b.ReportedBy,
		AssignedTo:       b.AssignedTo,
		StepsToReproduce: b.StepsToReproduce,
		Environment: environmentDocument{
			OS:      b.Environment.OS,
			Browser: b.Environment.Browser,
			Version: b.Environment.Version,
		},
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func (d bugDocument) toBug() (Bug, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return Bug{}, fmt.Errorf("decode bug id %q: %w", d.ID, err)
	}
	steps := d.StepsToReproduce
	if steps == nil {
		steps = []string{}
	}
	return Bug{
		ID:               id,
		Seq:              d.Seq,
		Title:            d.Title,
		Description:      d.Description,
		Status:           Status(d.Status),
		Priority:         Priority(d.Priority),
		ReportedBy:       d.ReportedBy,
		AssignedTo:       d.AssignedTo,
		StepsToReproduce: steps,
		Environment: Environment{
			OS:      d.Environment.OS,
			Browser: d.Environment.Browser,
			Version: d.Environment.Version,
		},
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

func (s *FirestoreStore) bugsCollection() string {
	if s.collectionPrefix != "" {
		return s.collectionPrefix + "_bugs"
	}
	return "bugs"
}

func (s *FirestoreStore) counterCollection() string {
	if s.collectionPrefix != "" {
		return s.collectionPrefix + "_counters"
	}
	return "counters"
}

const bugCounterDoc = "bug_counter"

// Create assigns the next sequence number and writes the document in one transaction.
func (s *FirestoreStore) Create(ctx context.Context, b Bug) (Bug, error) {
	counterRef := s.client.Collection(s.counterCollection()).Doc(bugCounterDoc)
	docRef := s.client.Collection(s.bugsCollection()).Doc(b.ID.String())

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		next := int64(1)
		snap, err := tx.Get(counterRef)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return fmt.Errorf("get bug counter: %w", err)
		default:
			value, err := snap.DataAt("value")
			if err != nil {
				return fmt.Errorf("read bug counter: %w", err)
			}
			current, ok := value.(int64)
			if !ok {
				return fmt.Errorf("bug counter has unexpected type %T", value)
			}
			next = current + 1
		}

		b.Seq = next
		if err := tx.Set(counterRef, map[string]interface{}{"value": next}); err != nil {
			return err
		}
		return tx.Create(docRef, toDocument(b))
	})
	if err != nil {
		return Bug{}, fmt.Errorf("create bug document: %w", err)
	}
	return b.clone(), nil
}

func (s *FirestoreStore) Get(ctx context.Context, id uuid.UUID) (Bug, error) {
	snap, err := s.client.Collection(s.bugsCollection()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Bug{}, ErrBugNotFound
		}
		return Bug{}, fmt.Errorf("get bug document: %w", err)
	}
	return decodeBug(snap)
}

func (s *FirestoreStore) List(ctx context.Context, d Descriptor) (Page, error) {
	q := s.client.Collection(s.bugsCollection()).Query
	if d.Status != nil {
		q = q.Where("status", "==", string(*d.Status))
	}
	if d.Priority != nil {
		q = q.Where("priority", "==", string(*d.Priority))
	}

	bugs, err := s.collect(q.Documents(ctx))
	if err != nil {
		return Page{}, err
	}
	return Execute(bugs, d), nil
}

// Update replaces the stored document. A missing document is reported as ErrBugNotFound.
func (s *FirestoreStore) Update(ctx context.Context, b Bug) (Bug, error) {
	docRef := s.client.Collection(s.bugsCollection()).Doc(b.ID.String())

	var updated Bug
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrBugNotFound
			}
			return err
		}
		current, err := decodeBug(snap)
		if err != nil {
			return err
		}

		updated = b.clone()
		updated.Seq = current.Seq
		updated.CreatedAt = current.CreatedAt
		return tx.Set(docRef, toDocument(updated))
	})
	if err != nil {
		if errors.Is(err, ErrBugNotFound) {
			return Bug{}, ErrBugNotFound
		}
		return Bug{}, fmt.Errorf("update bug document: %w", err)
	}
	return updated, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.client.Collection(s.bugsCollection()).Doc(id.String()).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrBugNotFound
		}
		return fmt.Errorf("delete bug document: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Stats(ctx context.Context) (Summary, error) {
	bugs, err := s.collect(s.client.Collection(s.bugsCollection()).Documents(ctx))
	if err != nil {
		return Summary{}, err
	}
	return Summarize(bugs), nil
}

// Ping reads at most one document to confirm the backend is reachable.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	iter := s.client.Collection(s.bugsCollection()).Limit(1).Documents(ctx)
	defer iter.Stop()

	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("ping firestore: %w", err)
	}
	return nil
}

func (s *FirestoreStore) collect(iter *firestore.DocumentIterator) ([]Bug, error) {
	defer iter.Stop()

	var bugs []Bug
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate bug documents: %w", err)
		}
		b, err := decodeBug(snap)
		if err != nil {
			return nil, err
		}
		bugs = append(bugs, b)
	}
	return bugs, nil
}

func decodeBug(snap *firestore.DocumentSnapshot) (Bug, error) {
	var doc bugDocument
	if err := snap.DataTo(&doc); err != nil {
		return Bug{}, fmt.Errorf("decode bug document %s: %w", snap.Ref.ID, err)
	}
	return doc.toBug()
}
