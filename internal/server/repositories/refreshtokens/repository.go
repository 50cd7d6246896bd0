// Package refreshtokens declares the server-side repository contract for
// tracking issued refresh tokens.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
)

// Repository tracks refresh tokens by token id. A refresh token is only
// honoured while its row exists.
type Repository interface {
	// Create stores a newly issued refresh token.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find looks up a refresh token by id, returning common.ErrorNotFound
	// when it is absent (never issued, revoked or purged).
	Find(ctx context.Context, id string) (*models.RefreshToken, error)

	// Delete revokes a refresh token. Deleting a missing token is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired purges the user's tokens whose expiry has passed.
	DeleteExpired(ctx context.Context, userID string) error
}
