package notify

import (
	"github.com/toeserve/presenced/internal/metrics"
	"github.com/toeserve/presenced/internal/sessionregistry"
	"github.com/toeserve/presenced/internal/types"
)

// computeVisibleStatus fills contact.Status from observer's point of view
// (spec §4.5): offline if the head has no loaded detail or the observer is
// blocked from seeing them, otherwise a copy of the head's live status.
func computeVisibleStatus(contact *types.Contact, observer *types.User) {
	head := contact.Head
	if head.Detail == nil || isBlocking(head, observer) {
		contact.Status = types.UserStatus{Substatus: types.SubstatusOffline}
		return
	}
	contact.Status = head.Status
}

// isBlocking reports whether blocker's visibility rules hide them from
// blockee (spec §4.5): an explicit BL wins, then an explicit AL, then the
// blocker's BLP default.
func isBlocking(blocker, blockee *types.User) bool {
	var lists types.Lst
	if blocker.Detail != nil {
		if c, ok := blocker.Detail.Contacts[blockee.UUID]; ok {
			lists = c.Lists
		}
	}
	if lists.Has(types.LstBL) {
		return true
	}
	if lists.Has(types.LstAL) {
		return false
	}
	return blocker.BLP() == types.BLPBlock
}

// syncContactStatuses recomputes contact.Status for every contact of every
// currently logged-in user (spec §4.5). It must run to completion before
// any fan-out event for the same change is emitted (ordering guarantee,
// §5). Callers hold c.mu.
func (c *Core) syncContactStatuses() {
	seen := map[string]*types.User{}
	for _, sess := range c.sessions.IterAll() {
		if sess.User != nil {
			seen[sess.User.UUID] = sess.User
		}
	}

	for _, owner := range seen {
		if owner.Detail == nil {
			continue
		}
		for _, contact := range owner.Detail.Contacts {
			computeVisibleStatus(contact, owner)
		}
	}
}

// genericNotify fans a presence change for changedUser out to every online
// session that has changedUser as a contact, skipping changedUser's own
// sessions (spec §4.5). Callers hold c.mu and must have already run
// syncContactStatuses for this change.
func (c *Core) genericNotify(changedUser *types.User) {
	for _, sess := range c.sessions.IterAll() {
		if sess.User == nil || sess.User.UUID == changedUser.UUID {
			continue
		}
		if sess.User.Detail == nil {
			continue
		}
		contact, ok := sess.User.Detail.Contacts[changedUser.UUID]
		if !ok {
			continue
		}
		sess.Send(sessionregistry.PresenceEvent{Contact: contact})
		metrics.PresenceNotificationsSent.Inc()
	}
}
