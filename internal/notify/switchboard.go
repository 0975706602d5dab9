package notify

import (
	"context"

	"github.com/toeserve/presenced/internal/corerr"
	"github.com/toeserve/presenced/internal/metrics"
	"github.com/toeserve/presenced/internal/sessionregistry"
)

const (
	purposeSBTransfer = "sb/xfr"
	purposeSBCall     = "sb/cal"
)

// SBTokenPayload is the opaque payload minted for both sb/xfr and sb/cal
// tokens: who the switchboard should treat the bearer as, plus whatever
// adapter-defined extra data travels with it.
type SBTokenPayload struct {
	UUID  string
	Extra map[string]string
}

// SBTokenCreate mints an sb/xfr token for sess.User and returns it with the
// configured switchboard address (spec §4.7).
func (c *Core) SBTokenCreate(sess *sessionregistry.Session, extra map[string]string) (string, sessionregistry.SBAddress, error) {
	token, err := c.auth.CreateToken(purposeSBTransfer, SBTokenPayload{UUID: sess.User.UUID, Extra: extra}, c.cfg.CallTokenLifetime)
	if err != nil {
		return "", sessionregistry.SBAddress{}, err
	}
	addr := sessionregistry.SBAddress{Host: c.cfg.Switchboard.Host, Port: c.cfg.Switchboard.Port}
	return token, addr, nil
}

// NotifyCall brokers a switchboard invitation from caller to every live
// session of calleeEmail (spec §4.7).
func (c *Core) NotifyCall(ctx context.Context, callerUUID, calleeEmail, chatID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	caller, err := c.users.Get(ctx, callerUUID)
	if err != nil {
		return err
	}
	if caller == nil {
		return corerr.ErrUserDoesNotExist
	}

	callee, err := c.users.GetByEmail(ctx, calleeEmail)
	if err != nil {
		return err
	}
	if callee == nil {
		return corerr.ErrUserDoesNotExist
	}

	if caller.Detail == nil {
		return corerr.ErrServer
	}
	contact, ok := caller.Detail.Contacts[callee.UUID]
	if !ok {
		return corerr.ErrContactDoesNotExist
	}

	calleeSessions := c.sessions.GetByUser(callee)
	if contact.Status.IsOfflineish() || len(calleeSessions) == 0 {
		return corerr.ErrContactNotOnline
	}

	addr := sessionregistry.SBAddress{Host: c.cfg.Switchboard.Host, Port: c.cfg.Switchboard.Port}
	for _, s := range calleeSessions {
		token, err := c.auth.CreateToken(purposeSBCall, SBTokenPayload{
			UUID:  callee.UUID,
			Extra: map[string]string{"session": s.UUID},
		}, c.cfg.CallTokenLifetime)
		if err != nil {
			return err
		}
		s.Send(sessionregistry.InvitedToChatEvent{
			Address: addr,
			ChatID:  chatID,
			Token:   token,
			Caller:  caller,
		})
		metrics.SwitchboardInvitesSent.Inc()
	}
	return nil
}

// UtilGetUUIDFromEmail resolves a user's uuid by email, for adapters
// needing to address a contact by the legacy email-like identifier (spec
// §6).
func (c *Core) UtilGetUUIDFromEmail(ctx context.Context, email string) (string, error) {
	u, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", corerr.ErrUserDoesNotExist
	}
	return u.UUID, nil
}

// UtilGetSessByToken resolves a live session by its bound token.
func (c *Core) UtilGetSessByToken(token string) *sessionregistry.Session {
	return c.sessions.GetByToken(token)
}
