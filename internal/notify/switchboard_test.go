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

// TestNotifyCallOfflineThenOnline covers scenario S6.
func TestNotifyCallOfflineThenOnline(t *testing.T) {
	c, adapter := newTestCore(t)
	seedUser(adapter, "u-a", "alice@x")
	seedUser(adapter, "u-b", "bob@x")

	sessA := login(t, c, "s-a", "u-a")
	_, _, err := c.ContactAdd(context.Background(), sessA, "u-b", types.LstFL, "Bob")
	require.NoError(t, err)

	err = c.NotifyCall(context.Background(), "u-a", "bob@x", "c1")
	assert.ErrorIs(t, err, corerr.ErrContactNotOnline)

	sessB1 := login(t, c, "s-b1", "u-b")
	sessB2 := login(t, c, "s-b2", "u-b")
	drainAll(sessA)
	drainAll(sessB1)
	drainAll(sessB2)

	online := types.SubstatusOnline
	require.NoError(t, c.MeUpdate(sessB1, MeUpdateFields{Substatus: &online}))
	drainAll(sessA)
	drainAll(sessB1)
	drainAll(sessB2)

	require.NoError(t, c.NotifyCall(context.Background(), "u-a", "bob@x", "c1"))

	ev1 := recvEvent(t, sessB1).(sessionregistry.InvitedToChatEvent)
	ev2 := recvEvent(t, sessB2).(sessionregistry.InvitedToChatEvent)

	assert.Equal(t, "c1", ev1.ChatID)
	assert.Equal(t, "c1", ev2.ChatID)
	assert.NotEqual(t, ev1.Token, ev2.Token, "each session gets its own sb/cal token")
	assert.Equal(t, "u-a", ev1.Caller.UUID)
}
