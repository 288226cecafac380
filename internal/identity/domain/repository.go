package domain

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists users.
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// LinkedAccountRepository persists linked Google accounts.
type LinkedAccountRepository interface {
	Save(ctx context.Context, account *LinkedAccount) error
	FindByID(ctx context.Context, id uuid.UUID) (*LinkedAccount, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*LinkedAccount, error)
	FindByUserAndEmail(ctx context.Context, userID uuid.UUID, googleEmail string) (*LinkedAccount, error)
	FindPrimaryForUser(ctx context.Context, userID uuid.UUID) (*LinkedAccount, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
