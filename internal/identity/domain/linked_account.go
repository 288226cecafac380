package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAccountAlreadyLinked = errors.New("account is already linked")
	ErrAccountNotFound      = errors.New("linked account not found")
	ErrUnlinkPrimary        = errors.New("cannot unlink primary account")
	ErrMissingTokens        = errors.New("access token is required")
)

// LinkedAccount is a Google account attached to a user. Token material is
// stored encrypted; decryption happens in the oauth service.
type LinkedAccount struct {
	id             uuid.UUID
	userID         uuid.UUID
	googleEmail    string
	accessToken    string
	refreshToken   string
	tokenExpiresAt time.Time
	isPrimary      bool
	createdAt      time.Time
}

// NewLinkedAccount creates a linked account holding encrypted tokens.
func NewLinkedAccount(userID uuid.UUID, googleEmail, encryptedAccessToken, encryptedRefreshToken string, tokenExpiresAt time.Time, isPrimary bool) (*LinkedAccount, error) {
	if encryptedAccessToken == "" {
		return nil, ErrMissingTokens
	}

	return &LinkedAccount{
		id:             uuid.New(),
		userID:         userID,
		googleEmail:    googleEmail,
		accessToken:    encryptedAccessToken,
		refreshToken:   encryptedRefreshToken,
		tokenExpiresAt: tokenExpiresAt,
		isPrimary:      isPrimary,
		createdAt:      time.Now().UTC(),
	}, nil
}

// RehydrateLinkedAccount reconstructs a linked account from persisted state.
func RehydrateLinkedAccount(id, userID uuid.UUID, googleEmail, accessToken, refreshToken string, tokenExpiresAt time.Time, isPrimary bool, createdAt time.Time) *LinkedAccount {
	return &LinkedAccount{
		id:             id,
		userID:         userID,
		googleEmail:    googleEmail,
		accessToken:    accessToken,
		refreshToken:   refreshToken,
		tokenExpiresAt: tokenExpiresAt,
		isPrimary:      isPrimary,
		createdAt:      createdAt,
	}
}

// Getters
func (a *LinkedAccount) ID() uuid.UUID             { return a.id }
func (a *LinkedAccount) UserID() uuid.UUID         { return a.userID }
func (a *LinkedAccount) GoogleEmail() string       { return a.googleEmail }
func (a *LinkedAccount) AccessToken() string       { return a.accessToken }
func (a *LinkedAccount) RefreshToken() string      { return a.refreshToken }
func (a *LinkedAccount) TokenExpiresAt() time.Time { return a.tokenExpiresAt }
func (a *LinkedAccount) IsPrimary() bool           { return a.isPrimary }
func (a *LinkedAccount) CreatedAt() time.Time      { return a.createdAt }

// UpdateTokens replaces the stored token material after a refresh or
// re-authentication.
func (a *LinkedAccount) UpdateTokens(encryptedAccessToken, encryptedRefreshToken string, tokenExpiresAt time.Time) error {
	if encryptedAccessToken == "" {
		return ErrMissingTokens
	}
	a.accessToken = encryptedAccessToken
	if encryptedRefreshToken != "" {
		a.refreshToken = encryptedRefreshToken
	}
	a.tokenExpiresAt = tokenExpiresAt
	return nil
}

// TokenExpiresWithin reports whether the access token expires before
// now plus the given window.
func (a *LinkedAccount) TokenExpiresWithin(now time.Time, window time.Duration) bool {
	return a.tokenExpiresAt.Sub(now) < window
}
