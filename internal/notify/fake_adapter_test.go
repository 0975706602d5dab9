package notify

import (
	"context"
	"time"

	"github.com/toeserve/presenced/internal/store"
	"github.com/toeserve/presenced/internal/types"
)

// fakeAdapter is a minimal in-memory store.Adapter for tests: seeded users
// with empty groups/contacts, recording every SaveBatch call for
// inspection.
type fakeAdapter struct {
	byUUID  map[string]*types.User
	byEmail map[string]*types.User
	saves   [][]store.UserSave
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		byUUID:  map[string]*types.User{},
		byEmail: map[string]*types.User{},
	}
}

func (f *fakeAdapter) seed(u *types.User) {
	cp := *u
	f.byUUID[u.UUID] = &cp
	f.byEmail[u.Email] = &cp
}

func (f *fakeAdapter) Open(ctx context.Context) error  { return nil }
func (f *fakeAdapter) Close() error                    { return nil }

func (f *fakeAdapter) UserGetByUUID(ctx context.Context, uuid string) (*types.User, error) {
	if u, ok := f.byUUID[uuid]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAdapter) UserGetByEmail(ctx context.Context, email string) (*types.User, error) {
	if u, ok := f.byEmail[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAdapter) UserCreate(ctx context.Context, u *types.User) error {
	f.seed(u)
	return nil
}

func (f *fakeAdapter) UserUpdateLogin(ctx context.Context, uuid string, at time.Time) error {
	if u, ok := f.byUUID[uuid]; ok {
		u.DateLogin = at
	}
	return nil
}

func (f *fakeAdapter) LoadGroups(ctx context.Context, userUUID string) ([]*types.Group, error) {
	return nil, nil
}

func (f *fakeAdapter) LoadContacts(ctx context.Context, userUUID string) ([]store.ContactRow, error) {
	return nil, nil
}

func (f *fakeAdapter) SaveBatch(ctx context.Context, batch []store.UserSave) error {
	f.saves = append(f.saves, batch)
	return nil
}

func (f *fakeAdapter) GetFrontData(ctx context.Context, uuid, service, key string) (string, bool, error) {
	return "", false, nil
}

func (f *fakeAdapter) SetFrontData(ctx context.Context, uuid, service, key, value string) error {
	return nil
}
