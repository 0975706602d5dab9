package notify

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/toeserve/presenced/internal/corerr"
	"github.com/toeserve/presenced/internal/sessionregistry"
	"github.com/toeserve/presenced/internal/types"
)

// genGroupID allocates the smallest positive integer, as a decimal string,
// not already used as a group id for this detail (spec §4.6, P6).
func genGroupID(detail *types.UserDetail) string {
	for i := 1; ; i++ {
		id := strconv.Itoa(i)
		if !detail.GroupIDInUse(id) {
			return id
		}
	}
}

func validateGroupName(detail *types.UserDetail, name string) error {
	if len(name) > types.MaxGroupNameLength {
		return corerr.ErrGroupNameTooLong
	}
	if name == types.NoGroupName {
		return corerr.ErrGroupAlreadyExists
	}
	for _, g := range detail.Groups() {
		if g.Name == name {
			return corerr.ErrGroupAlreadyExists
		}
	}
	return nil
}

// GroupAdd creates a new group for sess.User (spec §4.6).
func (c *Core) GroupAdd(sess *sessionregistry.Session, name string) (*types.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	user := sess.User
	detail := user.Detail

	if err := validateGroupName(detail, name); err != nil {
		return nil, err
	}

	g := &types.Group{
		ID:   genGroupID(detail),
		UUID: uuid.NewString(),
		Name: name,
	}
	detail.PutGroup(g)
	c.markModified(user)
	return g, nil
}

// GroupRemove deletes a group and scrubs its id from every contact's
// membership list (spec §4.6).
func (c *Core) GroupRemove(sess *sessionregistry.Session, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == types.UngroupedID {
		return corerr.ErrCannotRemoveSpecialGroup
	}
	detail := sess.User.Detail
	if _, ok := detail.GroupByID(id); !ok {
		return corerr.ErrGroupDoesNotExist
	}

	detail.DeleteGroup(id)
	for _, contact := range detail.Contacts {
		contact.PurgeGroup(id)
	}
	c.markModified(sess.User)
	return nil
}

// GroupEdit renames a group.
//
// The source this was distilled from references an unbound `name` instead
// of the parameter actually carrying the new value; this always uses the
// explicit newName parameter.
func (c *Core) GroupEdit(sess *sessionregistry.Session, id, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	detail := sess.User.Detail
	g, ok := detail.GroupByID(id)
	if !ok {
		return corerr.ErrGroupDoesNotExist
	}
	if err := validateGroupName(detail, newName); err != nil {
		return err
	}
	g.Name = newName
	c.markModified(sess.User)
	return nil
}

// GroupContactAdd files an existing contact under a group. Adding to the
// reserved ungrouped id "0" is a no-op (spec I4, §4.6).
func (c *Core) GroupContactAdd(sess *sessionregistry.Session, groupID, contactUUID string) error {
	if groupID == types.UngroupedID {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	detail := sess.User.Detail
	g, ok := detail.GroupByID(groupID)
	if !ok {
		return corerr.ErrGroupDoesNotExist
	}
	contact, ok := detail.Contacts[contactUUID]
	if !ok {
		return corerr.ErrContactDoesNotExist
	}
	if contact.InGroup(groupID) {
		return corerr.ErrContactAlreadyOnList
	}
	contact.AddToGroup(g.ID, g.UUID)
	c.markModified(sess.User)
	return nil
}

// GroupContactRemove undoes GroupContactAdd. Removing from the reserved
// ungrouped id "0" always reports ContactNotOnList since "0" memberships
// never exist as real rows (spec I4, §4.6).
func (c *Core) GroupContactRemove(sess *sessionregistry.Session, groupID, contactUUID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	detail := sess.User.Detail

	if groupID == types.UngroupedID {
		return corerr.ErrContactNotOnList
	}

	if _, ok := detail.GroupByID(groupID); !ok {
		return corerr.ErrGroupDoesNotExist
	}
	contact, ok := detail.Contacts[contactUUID]
	if !ok {
		return corerr.ErrContactDoesNotExist
	}
	if !contact.InGroup(groupID) {
		return corerr.ErrContactNotOnList
	}
	contact.RemoveFromGroup(groupID)
	c.markModified(sess.User)
	return nil
}

// ContactAdd resolves contactUUID via the user cache and adds it to the
// acting user's lst (spec §4.6). Adding to FL also mirrors the RL bit on
// the contact's own detail (I1) and notifies every live session of the
// contact. Every live session of the acting user then receives a presence
// event for the new contact.
func (c *Core) ContactAdd(ctx context.Context, sess *sessionregistry.Session, contactUUID string, lst types.Lst, name string) (*types.Contact, *types.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	user := sess.User
	head, err := c.users.Get(ctx, contactUUID)
	if err != nil {
		return nil, nil, err
	}
	if head == nil {
		return nil, nil, corerr.ErrUserDoesNotExist
	}

	contact, ok := user.Detail.Contacts[contactUUID]
	if !ok {
		contact = &types.Contact{Head: head}
		contact.Status.Name = name
		user.Detail.Contacts[contactUUID] = contact
	}
	contact.Lists |= lst

	if lst == types.LstFL {
		if err := c.mirrorReverseAdd(ctx, user, head); err != nil {
			// Roll back the FL addition so no partial state survives
			// (spec §7: partial failure is avoided).
			contact.Lists &^= lst
			if contact.Lists == 0 {
				delete(user.Detail.Contacts, contactUUID)
			}
			return nil, nil, err
		}
	}

	c.markModified(user)
	c.syncContactStatuses()
	c.genericNotify(user)

	// The adder's own sessions also learn the new contact's visible status.
	for _, s := range c.sessions.GetByUser(user) {
		s.Send(sessionregistry.PresenceEvent{Contact: contact})
	}

	return contact, head, nil
}

// mirrorReverseAdd adds user to head's RL and notifies head's live
// sessions, maintaining I1. head must already be loaded (it was just
// resolved via the shared user cache). head may be offline: its detail is
// loaded from the store (or reused from a pending dirty entry) so the
// mirrored RL bit is queued for persistence rather than lost, since an
// offline head has no in-memory detail for the mutation to live in.
func (c *Core) mirrorReverseAdd(ctx context.Context, user, head *types.User) error {
	detail, err := c.loadDetailForMutation(ctx, head)
	if err != nil {
		return err
	}

	rc, ok := detail.Contacts[user.UUID]
	if !ok {
		rc = &types.Contact{Head: user}
		detail.Contacts[user.UUID] = rc
	}
	rc.Lists |= types.LstRL
	c.markModifiedDetail(head, detail)

	for _, s := range c.sessions.GetByUser(head) {
		s.Send(sessionregistry.AddedToListEvent{List: types.LstRL, User: user})
	}
	return nil
}

// ContactEdit patches mutable fields on an existing contact.
func (c *Core) ContactEdit(sess *sessionregistry.Session, contactUUID string, isFavorite, isMessengerUser *bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	contact, ok := sess.User.Detail.Contacts[contactUUID]
	if !ok {
		return corerr.ErrContactDoesNotExist
	}
	if isFavorite != nil {
		contact.IsFavorite = *isFavorite
	}
	if isMessengerUser != nil {
		contact.IsMessengerUser = *isMessengerUser
	}
	c.markModified(sess.User)
	return nil
}

// ContactRemove clears lst from a contact (spec §4.6). Removing FL also
// clears the mirrored RL on the contact side (I1), whether or not the
// contact is currently online (I1 must hold in the persisted state too,
// not just in memory); RL itself cannot be removed directly. A contact
// whose lists become empty is purged (I3).
func (c *Core) ContactRemove(ctx context.Context, sess *sessionregistry.Session, contactUUID string, lst types.Lst) error {
	if lst == types.LstRL {
		return corerr.ErrServer
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	user := sess.User
	contact, ok := user.Detail.Contacts[contactUUID]
	if !ok {
		return corerr.ErrContactDoesNotExist
	}

	contact.Lists &^= lst

	if lst == types.LstFL {
		head := contact.Head
		detail, err := c.loadDetailForMutation(ctx, head)
		if err != nil {
			return err
		}
		if rc, ok := detail.Contacts[user.UUID]; ok {
			rc.Lists &^= types.LstRL
			if rc.Lists == 0 {
				delete(detail.Contacts, user.UUID)
			}
			c.markModifiedDetail(head, detail)
		}
	}

	if contact.Lists == 0 {
		delete(user.Detail.Contacts, contactUUID)
	}

	c.markModified(user)
	c.syncContactStatuses()
	c.genericNotify(user)
	return nil
}

// MeUpdateFields is the set of self-editable fields accepted by MeUpdate.
// Pointers distinguish "not provided" from a provided zero value.
type MeUpdateFields struct {
	Substatus *types.Substatus
	Message   *string
	Media     *string
	Name      *string
	GTC       *string
	BLP       *string
}

// MeUpdate patches the acting user's own status/settings, then recomputes
// and fans out presence (spec §4.6).
func (c *Core) MeUpdate(sess *sessionregistry.Session, fields MeUpdateFields) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	user := sess.User
	if fields.Substatus != nil {
		user.Status.Substatus = *fields.Substatus
	}
	if fields.Message != nil {
		user.Status.SetStatusMessage(*fields.Message, true)
	}
	if fields.Media != nil {
		user.Status.Media = *fields.Media
	}
	if fields.Name != nil {
		user.Status.Name = *fields.Name
	}
	if user.Settings == nil {
		user.Settings = map[string]string{}
	}
	if fields.GTC != nil {
		user.Settings["gtc"] = *fields.GTC
	}
	if fields.BLP != nil {
		user.Settings["BLP"] = *fields.BLP
	}

	c.markModified(user)
	c.syncContactStatuses()
	c.genericNotify(user)
	return nil
}
