package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"myfolio/internal/domain/user"
)

// UserRepository implements user.Repository on Firestore.
type UserRepository struct {
	client *firestore.Client
}

func NewUserRepository(client *firestore.Client) *UserRepository {
	return &UserRepository{client: client}
}

func (r *UserRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(id)
}

func (r *UserRepository) Upsert(ctx context.Context, u *user.User) error {
	if _, err := r.doc(u.ID).Set(ctx, u); err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	snap, err := r.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}

	var u user.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	u.ID = snap.Ref.ID
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	var users []*user.User

	it := r.client.Collection(usersCollection).Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate users: %w", err)
		}

		var u user.User
		if err := snap.DataTo(&u); err != nil {
			return nil, fmt.Errorf("failed to decode user %s: %w", snap.Ref.ID, err)
		}
		u.ID = snap.Ref.ID
		users = append(users, &u)
	}

	return users, nil
}

// ListUserIDs implements token.UserLister for the cleanup sweep without
// decoding full profiles.
func (r *UserRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string

	it := r.client.Collection(usersCollection).Select().Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate user ids: %w", err)
		}
		ids = append(ids, snap.Ref.ID)
	}

	return ids, nil
}
