package auth

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps users and refresh tokens in Firestore. User documents are keyed by
// email so registration can rely on Create failing for duplicates.
type FirestoreStore struct {
	client           *firestore.Client
	collectionPrefix string
}

// NewFirestoreStore wraps an existing client. prefix namespaces the collections.
func NewFirestoreStore(client *firestore.Client, prefix string) *FirestoreStore {
	return &FirestoreStore{client: client, collectionPrefix: prefix}
}

type userDocument struct {
	ID           string    `firestore:"id"`
	Email        string    `firestore:"email"`
	DisplayName  *string   `firestore:"displayName"`
	IsAdmin      bool      `firestore:"isAdmin"`
	PasswordHash string    `firestore:"passwordHash"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

type refreshTokenDocument struct {
	UserID    string     `firestore:"userId"`
	TokenHash string     `firestore:"tokenHash"`
	ExpiresAt time.Time  `firestore:"expiresAt"`
	RevokedAt *time.Time `firestore:"revokedAt"`
	CreatedAt time.Time  `firestore:"createdAt"`
}

func (s *FirestoreStore) usersCollection() string {
	if s.collectionPrefix != "" {
		return s.collectionPrefix + "_users"
	}
	return "users"
}

func (s *FirestoreStore) tokensCollection() string {
	if s.collectionPrefix != "" {
		return s.collectionPrefix + "_refresh_tokens"
	}
	return "refresh_tokens"
}

func (s *FirestoreStore) CreateUser(ctx context.Context, email, passwordHash string, displayName *string, isAdmin bool) (User, error) {
	now := time.Now().UTC()
	user := User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		IsAdmin:      isAdmin,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.client.Collection(s.usersCollection()).Doc(email).Create(ctx, userDocument{
		ID:           user.ID.String(),
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		IsAdmin:      user.IsAdmin,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return User{}, ErrEmailAlreadyExists
		}
		return User{}, fmt.Errorf("create user document: %w", err)
	}
	return user, nil
}

func (s *FirestoreStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	snap, err := s.client.Collection(s.usersCollection()).Doc(email).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("get user document: %w", err)
	}
	return decodeUser(snap)
}

func (s *FirestoreStore) FindUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	iter := s.client.Collection(s.usersCollection()).Where("id", "==", id.String()).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user document: %w", err)
	}
	return decodeUser(snap)
}

func (s *FirestoreStore) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := s.client.Collection(s.tokensCollection()).Doc(tokenKey(userID, tokenHash)).Set(ctx, refreshTokenDocument{
		UserID:    userID.String(),
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *FirestoreStore) RevokeToken(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	_, err := s.client.Collection(s.tokensCollection()).Doc(tokenKey(userID, tokenHash)).Update(ctx, []firestore.Update{
		{Path: "revokedAt", Value: time.Now().UTC()},
	})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func decodeUser(snap *firestore.DocumentSnapshot) (User, error) {
	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return User{}, fmt.Errorf("decode user document %s: %w", snap.Ref.ID, err)
	}
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return User{}, fmt.Errorf("decode user id %q: %w", doc.ID, err)
	}
	return User{
		ID:           id,
		Email:        doc.Email,
		DisplayName:  doc.DisplayName,
		IsAdmin:      doc.IsAdmin,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}, nil
}
