// Package store defines the persistence contract UserService depends on,
// hiding the relational schema (spec §6) from the rest of the core.
package store

import (
	"context"
	"time"

	"github.com/toeserve/presenced/internal/types"
)

// ContactRow is one denormalized UserContact row, as read back for
// UserService.GetDetail to resolve into a types.Contact (the head User is
// resolved separately via Adapter.UserGetByUUID / the UserService cache).
type ContactRow struct {
	ContactUUID     string
	Lists           types.Lst
	Groups          []types.GroupEntry
	Name            string
	Message         string
	IsFavorite      bool
	IsMessengerUser bool
	Info            types.ContactInfo
}

// UserSave bundles a User and its UserDetail as one unit of work for
// SaveBatch (spec §4.1, §4.8).
type UserSave struct {
	User   *types.User
	Detail *types.UserDetail
}

// Adapter is the narrow persistence contract. Every method that can miss
// returns a nil result and a nil error; only genuine I/O failures return a
// non-nil error (spec §4.1 failure semantics).
type Adapter interface {
	Open(ctx context.Context) error
	Close() error

	UserGetByUUID(ctx context.Context, uuid string) (*types.User, error)
	UserGetByEmail(ctx context.Context, email string) (*types.User, error)
	UserCreate(ctx context.Context, u *types.User) error
	UserUpdateLogin(ctx context.Context, uuid string, at time.Time) error

	LoadGroups(ctx context.Context, userUUID string) ([]*types.Group, error)
	LoadContacts(ctx context.Context, userUUID string) ([]ContactRow, error)

	// SaveBatch upserts every (User, UserDetail) pair in one transaction,
	// deleting group/contact rows no longer present in the detail, and
	// must be idempotent (P5): replaying the same batch leaves the store
	// unchanged.
	SaveBatch(ctx context.Context, batch []UserSave) error

	// GetFrontData returns ("", false, nil) for an unknown user or key
	// rather than an error, so the credential lookups built on it
	// (UserService.GetMD5Salt, LoginMD5) do not leak account existence
	// (SPEC_FULL supplement 1).
	GetFrontData(ctx context.Context, uuid, service, key string) (string, bool, error)
	SetFrontData(ctx context.Context, uuid, service, key, value string) error
}
