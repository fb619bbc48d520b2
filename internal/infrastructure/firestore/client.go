// Package firestore persists users, encrypted tokens, the account cache and
// the transaction store in Cloud Firestore, laid out as subcollections under
// each user document.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

const (
	usersCollection        = "users"
	tokensCollection       = "plaid_tokens"
	accountsCollection     = "accounts"
	transactionsCollection = "transactions"
)

// NewClient initializes the Firebase app and returns its Firestore client.
// When credentialsFile is empty, application default credentials are used.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore client: %w", err)
	}

	return client, nil
}
