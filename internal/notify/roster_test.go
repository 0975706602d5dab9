package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toeserve/presenced/internal/corerr"
	"github.com/toeserve/presenced/internal/sessionregistry"
	"github.com/toeserve/presenced/internal/types"
)

// TestMutualAdd covers scenario S1: contact_add(FL) mirrors RL on the other
// side and both parties receive the expected events.
func TestMutualAdd(t *testing.T) {
	c, adapter := newTestCore(t)
	seedUser(adapter, "u-a", "alice@x")
	seedUser(adapter, "u-b", "bob@x")

	sessA := login(t, c, "s-a", "u-a")
	sessB := login(t, c, "s-b", "u-b")
	drainAll(sessA)
	drainAll(sessB)

	contact, head, err := c.ContactAdd(context.Background(), sessA, "u-b", types.LstFL, "Bob")
	require.NoError(t, err)
	assert.Equal(t, "u-b", head.UUID)
	assert.True(t, contact.Lists.Has(types.LstFL))

	assert.True(t, sessA.User.Detail.Contacts["u-b"].Lists.Has(types.LstFL))
	assert.True(t, sessB.User.Detail.Contacts["u-a"].Lists.Has(types.LstRL))

	added := recvEvent(t, sessB)
	addedEv, ok := added.(sessionregistry.AddedToListEvent)
	require.True(t, ok, "expected AddedToList before PresenceNotification")
	assert.Equal(t, types.LstRL, addedEv.List)
	assert.Equal(t, "u-a", addedEv.User.UUID)

	_ = recvEvent(t, sessB) // PresenceNotification
	_ = recvEvent(t, sessA) // PresenceNotification about bob
}

// TestBlockHidesPresence covers scenario S2.
func TestBlockHidesPresence(t *testing.T) {
	c, adapter := newTestCore(t)
	seedUser(adapter, "u-a", "alice@x")
	seedUser(adapter, "u-b", "bob@x")

	sessA := login(t, c, "s-a", "u-a")
	sessB := login(t, c, "s-b", "u-b")

	_, _, err := c.ContactAdd(context.Background(), sessB, "u-a", types.LstFL, "Alice")
	require.NoError(t, err)

	online := types.SubstatusOnline
	require.NoError(t, c.MeUpdate(sessA, MeUpdateFields{Substatus: &online}))
	drainAll(sessA)
	drainAll(sessB)

	_, _, err = c.ContactAdd(context.Background(), sessA, "u-b", types.LstBL, "Bob")
	require.NoError(t, err)

	assert.Equal(t, types.SubstatusOffline, sessB.User.Detail.Contacts["u-a"].Status.Substatus)
}

// TestDefaultDenyBLP covers scenario S3.
func TestDefaultDenyBLP(t *testing.T) {
	c, adapter := newTestCore(t)
	seedUser(adapter, "u-a", "alice@x")
	seedUser(adapter, "u-b", "bob@x")

	sessA := login(t, c, "s-a", "u-a")
	sessB := login(t, c, "s-b", "u-b")

	sessA.User.Settings["BLP"] = types.BLPBlock

	_, _, err := c.ContactAdd(context.Background(), sessB, "u-a", types.LstFL, "Alice")
	require.NoError(t, err)

	online := types.SubstatusOnline
	require.NoError(t, c.MeUpdate(sessA, MeUpdateFields{Substatus: &online}))

	assert.Equal(t, types.SubstatusOffline, sessB.User.Detail.Contacts["u-a"].Status.Substatus)
}

// TestGroupRoundTrip covers scenario S4 plus the group_edit name/new_name
// bug fix and Contact.RemoveFromGroup's wrong-variable bug fix.
func TestGroupRoundTrip(t *testing.T) {
	c, adapter := newTestCore(t)
	seedUser(adapter, "u-a", "alice@x")
	seedUser(adapter, "u-b", "bob@x")
	sessA := login(t, c, "s-a", "u-a")

	g, err := c.GroupAdd(sessA, "Friends")
	require.NoError(t, err)
	assert.Equal(t, "1", g.ID)

	_, err = c.GroupAdd(sessA, "Friends")
	assert.ErrorIs(t, err, corerr.ErrGroupAlreadyExists)

	_, _, err = c.ContactAdd(context.Background(), sessA, "u-b", types.LstFL, "Bob")
	require.NoError(t, err)
	require.NoError(t, c.GroupContactAdd(sessA, g.ID, "u-b"))
	assert.True(t, sessA.User.Detail.Contacts["u-b"].InGroup(g.ID))

	require.NoError(t, c.GroupRemove(sessA, g.ID))
	assert.False(t, sessA.User.Detail.Contacts["u-b"].InGroup(g.ID))
	_, ok := sessA.User.Detail.GroupByID(g.ID)
	assert.False(t, ok)
}

func TestGroupEditUsesNewNameParameter(t *testing.T) {
	c, adapter := newTestCore(t)
	seedUser(adapter, "u-a", "alice@x")
	sessA := login(t, c, "s-a", "u-a")

	g, err := c.GroupAdd(sessA, "Old")
	require.NoError(t, err)

	require.NoError(t, c.GroupEdit(sessA, g.ID, "New"))
	got, ok := sessA.User.Detail.GroupByID(g.ID)
	require.True(t, ok)
	assert.Equal(t, "New", got.Name)
}

func TestContactRemoveFLClearsMirroredRL(t *testing.T) {
	c, adapter := newTestCore(t)
	seedUser(adapter, "u-a", "alice@x")
	seedUser(adapter, "u-b", "bob@x")
	sessA := login(t, c, "s-a", "u-a")
	sessB := login(t, c, "s-b", "u-b")

	_, _, err := c.ContactAdd(context.Background(), sessA, "u-b", types.LstFL, "Bob")
	require.NoError(t, err)
	require.Contains(t, sessB.User.Detail.Contacts, "u-a")

	require.NoError(t, c.ContactRemove(context.Background(), sessA, "u-b", types.LstFL))
	assert.NotContains(t, sessA.User.Detail.Contacts, "u-b")
	assert.NotContains(t, sessB.User.Detail.Contacts, "u-a")
}

// TestContactAddFLMirrorsRLForOfflineHead covers I1 for the dominant
// real-world case: the contact being added is not currently logged in, so
// the mirrored RL bit has no live UserDetail to live in and must be queued
// for persistence instead.
func TestContactAddFLMirrorsRLForOfflineHead(t *testing.T) {
	c, adapter := newTestCore(t)
	seedUser(adapter, "u-a", "alice@x")
	seedUser(adapter, "u-b", "bob@x")
	sessA := login(t, c, "s-a", "u-a")

	_, head, err := c.ContactAdd(context.Background(), sessA, "u-b", types.LstFL, "Bob")
	require.NoError(t, err)
	assert.Nil(t, head.Detail, "bob stays offline: no detail should be attached")

	require.Equal(t, 2, c.DirtyCount(), "both alice and bob's mutations must be queued")

	c.drainOnce(context.Background())
	require.Len(t, adapter.saves, 1)

	var bobSave *types.UserDetail
	for _, batch := range adapter.saves {
		for _, item := range batch {
			if item.User.UUID == "u-b" {
				bobSave = item.Detail
			}
		}
	}
	require.NotNil(t, bobSave, "bob's mirrored RL must have been persisted")
	require.Contains(t, bobSave.Contacts, "u-a")
	assert.True(t, bobSave.Contacts["u-a"].Lists.Has(types.LstRL))
}

// TestContactRemoveFLClearsMirroredRLForOfflineHead is the symmetric
// regression: removing FL while the contact is offline must still clear
// the queued RL mirror rather than leave it dangling for the next persist.
func TestContactRemoveFLClearsMirroredRLForOfflineHead(t *testing.T) {
	c, adapter := newTestCore(t)
	seedUser(adapter, "u-a", "alice@x")
	seedUser(adapter, "u-b", "bob@x")
	sessA := login(t, c, "s-a", "u-a")

	_, head, err := c.ContactAdd(context.Background(), sessA, "u-b", types.LstFL, "Bob")
	require.NoError(t, err)
	require.Nil(t, head.Detail)

	pending := c.dirty["u-b"]
	require.NotNil(t, pending, "bob's mirrored RL must be queued while bob is offline")
	require.Contains(t, pending.Contacts, "u-a")

	require.NoError(t, c.ContactRemove(context.Background(), sessA, "u-b", types.LstFL))

	pending = c.dirty["u-b"]
	require.NotNil(t, pending, "bob's detail stays queued for persistence")
	assert.NotContains(t, pending.Contacts, "u-a", "RL mirror must be cleared, not left dangling")
}

func TestRemoveFromGroupDiscardsFoundEntryNotOuterVariable(t *testing.T) {
	head := &types.User{UUID: "u-b"}
	c := &types.Contact{Head: head}
	c.AddToGroup("1", "uuid-1")
	c.AddToGroup("2", "uuid-2")
	c.AddToGroup("3", "uuid-3")

	c.RemoveFromGroup("2")

	assert.True(t, c.InGroup("1"))
	assert.False(t, c.InGroup("2"))
	assert.True(t, c.InGroup("3"))
	assert.Len(t, c.Groups, 2)
}
