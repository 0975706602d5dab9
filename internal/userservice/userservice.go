// Package userservice is the only component that reads or writes the
// persistent user store (spec §4.1); it hides the schema from the rest of
// the core and caches User records in memory.
package userservice

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/toeserve/presenced/internal/store"
	"github.com/toeserve/presenced/internal/store/oim"
	"github.com/toeserve/presenced/internal/types"
)

// frontDataService namespaces the bcrypt password hash alongside the
// protocol-specific MD5 blobs other front-ends store in the same table
// (SPEC_FULL supplement 3).
const frontDataService = "core"
const frontDataPasswordKey = "pw_bcrypt"
const msnFrontDataService = "msn"
const msnSaltKey = "md5_salt"
const msnHashKey = "pw_md5"

// Service implements spec §4.1 against a store.Adapter and a filesystem OIM
// store.
type Service struct {
	adapter store.Adapter
	oim     *oim.Store

	mu     sync.Mutex
	byUUID map[string]*types.User
}

// New builds a Service. adapter and oimStore are injected dependencies; the
// core never talks to either directly.
func New(adapter store.Adapter, oimStore *oim.Store) *Service {
	return &Service{
		adapter: adapter,
		oim:     oimStore,
		byUUID:  map[string]*types.User{},
	}
}

// Login verifies email/password against the stored bcrypt hash and returns
// the uuid on success, or "" with a nil error on any credential failure —
// unknown email, missing hash, or mismatch are indistinguishable to the
// caller. Store errors are returned as errors.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.adapter.UserGetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", nil
	}
	hash, ok, err := s.adapter.GetFrontData(ctx, u.UUID, frontDataService, frontDataPasswordKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", nil
	}
	return u.UUID, nil
}

// GetMD5Salt returns the per-account legacy MD5 challenge salt, minting and
// persisting one on first use. Returns ("", false, nil) for an unknown
// email — never an error — so an unknown account is not surfaced as a
// failure (SPEC_FULL supplement 1). Store errors are returned as errors.
func (s *Service) GetMD5Salt(ctx context.Context, email string) (string, bool, error) {
	u, err := s.adapter.UserGetByEmail(ctx, email)
	if err != nil {
		return "", false, err
	}
	if u == nil {
		return "", false, nil
	}

	salt, ok, err := s.adapter.GetFrontData(ctx, u.UUID, msnFrontDataService, msnSaltKey)
	if err != nil {
		return "", false, err
	}
	if ok && salt != "" {
		return salt, true, nil
	}

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", false, err
	}
	salt = hex.EncodeToString(buf)
	if err := s.adapter.SetFrontData(ctx, u.UUID, msnFrontDataService, msnSaltKey, salt); err != nil {
		return "", false, err
	}
	return salt, true, nil
}

// LoginMD5 verifies the legacy MSNP MD5 challenge response: the client
// hashes salt+storedMD5(password) and the server recomputes the same thing.
// Returns ("", false) on any failure, matching GetMD5Salt's non-enumerating
// contract.
func (s *Service) LoginMD5(ctx context.Context, email, hexHash string) (string, bool, error) {
	u, err := s.adapter.UserGetByEmail(ctx, email)
	if err != nil {
		return "", false, err
	}
	if u == nil {
		return "", false, nil
	}
	salt, ok, err := s.adapter.GetFrontData(ctx, u.UUID, msnFrontDataService, msnSaltKey)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	storedHash, ok, err := s.adapter.GetFrontData(ctx, u.UUID, msnFrontDataService, msnHashKey)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	sum := md5.Sum([]byte(salt + storedHash))
	if hex.EncodeToString(sum[:]) != hexHash {
		return "", false, nil
	}
	return u.UUID, true, nil
}

// UpdateDateLogin records the current timestamp; failures are not
// meaningful to the caller (fire-and-forget per spec §4.1), so this logs
// through the caller rather than blocking login on a write.
func (s *Service) UpdateDateLogin(ctx context.Context, uuid string) error {
	return s.adapter.UserUpdateLogin(ctx, uuid, time.Now().UTC())
}

// Get returns the cached User for uuid, loading it from the store on first
// access. At most one instance per uuid is ever returned (spec I6).
func (s *Service) Get(ctx context.Context, uuid string) (*types.User, error) {
	s.mu.Lock()
	if u, ok := s.byUUID[uuid]; ok {
		s.mu.Unlock()
		return u, nil
	}
	s.mu.Unlock()

	u, err := s.adapter.UserGetByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byUUID[uuid]; ok {
		return existing, nil
	}
	s.byUUID[uuid] = u
	return u, nil
}

// GetByEmail resolves a user by email, routing through the same uuid cache
// as Get so the two never disagree on identity (spec I6).
func (s *Service) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	u, err := s.adapter.UserGetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	return s.Get(ctx, u.UUID)
}

// GetDetail rebuilds a UserDetail by loading group rows and contact rows,
// recursively resolving each contact's head User via Get.
func (s *Service) GetDetail(ctx context.Context, uuid string) (*types.UserDetail, error) {
	groups, err := s.adapter.LoadGroups(ctx, uuid)
	if err != nil {
		return nil, err
	}
	rows, err := s.adapter.LoadContacts(ctx, uuid)
	if err != nil {
		return nil, err
	}

	detail := types.NewUserDetail()
	for _, g := range groups {
		detail.PutGroup(g)
	}
	for _, row := range rows {
		head, err := s.Get(ctx, row.ContactUUID)
		if err != nil {
			return nil, err
		}
		if head == nil {
			// Dangling reference in the store; skip rather than fail the
			// whole detail load.
			continue
		}
		c := &types.Contact{
			Head:            head,
			Lists:           row.Lists,
			Groups:          row.Groups,
			Info:            row.Info,
			IsFavorite:      row.IsFavorite,
			IsMessengerUser: row.IsMessengerUser,
		}
		detail.Contacts[row.ContactUUID] = c
	}
	return detail, nil
}

// SaveBatch upserts every (User, UserDetail) pair. Exceptions are the
// caller's concern to log; SaveBatch itself returns the first error
// encountered so the pump can log and keep running (spec §4.1, §4.8).
func (s *Service) SaveBatch(ctx context.Context, batch []store.UserSave) error {
	if len(batch) == 0 {
		return nil
	}
	return s.adapter.SaveBatch(ctx, batch)
}

// GetOIMBatch returns every queued offline message for the user.
func (s *Service) GetOIMBatch(recipientUUID string) ([]*types.OIM, error) {
	return s.oim.GetBatch(recipientUUID)
}

// GetOIMSingle returns one queued message, or nil if it does not exist.
func (s *Service) GetOIMSingle(recipientUUID, msgUUID string, markRead bool) (*types.OIM, error) {
	return s.oim.Get(recipientUUID, msgUUID, markRead)
}

// SaveOIM queues m for recipientUUID, assigning a uuid if unset.
func (s *Service) SaveOIM(recipientUUID string, m *types.OIM) (*types.OIM, error) {
	if recipientUUID == "" {
		return nil, errors.New("userservice: empty recipient")
	}
	return s.oim.Save(recipientUUID, m)
}

// DeleteOIM removes one queued message.
func (s *Service) DeleteOIM(recipientUUID, msgUUID string) error {
	return s.oim.Delete(recipientUUID, msgUUID)
}
