// Package notify implements NotificationCore (spec §4.4-§4.9): the
// orchestration layer owning login/logout, presence fan-out, roster
// mutations, switchboard brokering, and the persistence dirty set.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/toeserve/presenced/internal/authservice"
	"github.com/toeserve/presenced/internal/config"
	"github.com/toeserve/presenced/internal/corerr"
	"github.com/toeserve/presenced/internal/metrics"
	"github.com/toeserve/presenced/internal/sessionregistry"
	"github.com/toeserve/presenced/internal/types"
	"github.com/toeserve/presenced/internal/userservice"
)

const purposeLogin = "nb/login"

// Core is the notification core. Every mutation named in spec §4.6 runs
// under mu, matching the single-logical-mutex requirement of §5 for
// multi-threaded implementations; fan-out always iterates a registry
// snapshot rather than the live maps.
type Core struct {
	mu sync.Mutex

	cfg      *config.Config
	sessions *sessionregistry.Registry
	users    *userservice.Service
	auth     *authservice.Service
	log      *logrus.Logger

	dirty map[string]*types.UserDetail
}

// New wires a Core from its dependencies.
func New(cfg *config.Config, sessions *sessionregistry.Registry, users *userservice.Service, auth *authservice.Service, log *logrus.Logger) *Core {
	return &Core{
		cfg:      cfg,
		sessions: sessions,
		users:    users,
		auth:     auth,
		log:      log,
		dirty:    map[string]*types.UserDetail{},
	}
}

// LoginTwnStart verifies credentials and mints a one-shot nb/login token
// carrying the uuid; no session is created here (spec §4.4). Returns
// ("", false) on bad credentials.
func (c *Core) LoginTwnStart(ctx context.Context, email, password string) (string, bool, error) {
	uuid, err := c.users.Login(ctx, email, password)
	if err != nil {
		return "", false, err
	}
	if uuid == "" {
		return "", false, nil
	}
	token, err := c.auth.CreateToken(purposeLogin, uuid, c.cfg.LoginTokenLifetime)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// LoginTwnVerify redeems a token minted by LoginTwnStart and completes
// login.
func (c *Core) LoginTwnVerify(ctx context.Context, sess *sessionregistry.Session, token string) (*types.User, error) {
	payload, ok := c.auth.PopToken(purposeLogin, token)
	if !ok {
		return nil, corerr.ErrAuthenticationFailed
	}
	uuid, ok := payload.(string)
	if !ok {
		return nil, corerr.ErrServer
	}
	return c.loginCommon(ctx, sess, uuid)
}

// LoginMD5Verify authenticates via the legacy MSNP MD5 challenge and
// completes login.
//
// The source this was distilled from shadows the enclosing `token`
// variable at this point, leaving it ambiguous which token (if any) should
// be bound to the session. This core always mints a fresh session token in
// loginCommon instead of reusing anything from the login challenge.
func (c *Core) LoginMD5Verify(ctx context.Context, sess *sessionregistry.Session, email, hexHash string) (*types.User, error) {
	uuid, ok, err := c.users.LoginMD5(ctx, email, hexHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, corerr.ErrAuthenticationFailed
	}
	return c.loginCommon(ctx, sess, uuid)
}

// loginCommon is the shared tail of every login path (spec §4.4):
// touch date_login, resolve/cache the User, bind the session, attach or
// share UserDetail, register in the session registry.
func (c *Core) loginCommon(ctx context.Context, sess *sessionregistry.Session, uuid string) (*types.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.users.UpdateDateLogin(ctx, uuid); err != nil {
		c.log.WithError(err).WithField("uuid", uuid).Warn("update_date_login failed")
	}

	user, err := c.users.Get(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, corerr.ErrUserDoesNotExist
	}

	freshToken, err := c.auth.CreateToken("session", uuid, 0)
	if err != nil {
		return nil, err
	}

	sess.User = user
	sess.Token = freshToken
	c.sessions.Add(sess)
	metrics.SessionsOnline.Inc()

	if user.Detail == nil {
		detail, err := c.users.GetDetail(ctx, uuid)
		if err != nil {
			return nil, err
		}
		user.Detail = detail
	}

	c.syncContactStatuses()
	c.genericNotify(user)

	return user, nil
}

// OnConnectionLost tears down sess (spec §4.4): remove from the registry;
// if any session of the same user remains, the user stays online
// collectively; otherwise clear the detail and announce offline.
func (c *Core) OnConnectionLost(sess *sessionregistry.Session) {
	if sess.User == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	user := sess.User
	c.sessions.Remove(sess)
	metrics.SessionsOnline.Dec()

	if c.sessions.HasAnySession(user) {
		return
	}

	user.Detail = nil
	c.syncContactStatuses()
	c.genericNotify(user)
}

// markModified inserts user into the dirty set keyed by uuid; repeated
// marks before the next drain are free (spec §4.8, §9).
func (c *Core) markModified(user *types.User) {
	c.markModifiedDetail(user, user.Detail)
}

// drainDirty removes up to n entries from the dirty set and returns them as
// save units, for the pump to persist. Called only from the pump goroutine.
func (c *Core) drainDirty(n int) map[string]*types.UserDetail {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.dirty) == 0 {
		return nil
	}
	out := make(map[string]*types.UserDetail, n)
	for uuid, detail := range c.dirty {
		out[uuid] = detail
		delete(c.dirty, uuid)
		if len(out) >= n {
			break
		}
	}
	metrics.DirtySetSize.Set(float64(len(c.dirty)))
	return out
}

// loadDetailForMutation returns the UserDetail to mutate for user, whether
// or not user is currently online: the live detail if loaded, the detail
// already queued for persistence if a prior mutation this drain cycle
// touched an offline user, or a fresh load from the store otherwise. It
// never assigns the result to user.Detail — a detail is only attached to a
// user on login (I6); an offline user's mirrored state lives solely in the
// dirty set until the next login rebuilds it from the store. Callers hold
// c.mu.
func (c *Core) loadDetailForMutation(ctx context.Context, user *types.User) (*types.UserDetail, error) {
	if user.Detail != nil {
		return user.Detail, nil
	}
	if detail, ok := c.dirty[user.UUID]; ok && detail != nil {
		return detail, nil
	}
	return c.users.GetDetail(ctx, user.UUID)
}

// markModifiedDetail is markModified for a detail not (or not yet) attached
// to user.Detail — the offline-mutation path. See loadDetailForMutation.
func (c *Core) markModifiedDetail(user *types.User, detail *types.UserDetail) {
	if user.Detail != nil && user.Detail != detail {
		panic(fmt.Sprintf("notify: detail identity mismatch for %s", user.UUID))
	}
	c.dirty[user.UUID] = detail
	metrics.DirtySetSize.Set(float64(len(c.dirty)))
}

// DirtyCount reports the current dirty-set size, for tests and metrics.
func (c *Core) DirtyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.dirty)
}
