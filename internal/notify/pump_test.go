package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toeserve/presenced/internal/sessionregistry"
	"github.com/toeserve/presenced/internal/types"
)

// TestPumpDrains covers scenario S5: a steady stream of me_update calls
// across several users, interleaved with the pump's own ticking, settles
// the dirty set to empty and exercises more than one drain cycle.
func TestPumpDrains(t *testing.T) {
	c, adapter := newTestCore(t)
	c.cfg.PumpInterval = 5 * time.Millisecond
	c.cfg.PumpBatchSize = 20

	const numUsers = 10
	sessions := make([]*sessionregistry.Session, numUsers)
	for i := 0; i < numUsers; i++ {
		uuid := string(rune('a' + i))
		seedUser(adapter, uuid, uuid+"@x")
		sessions[i] = login(t, c, "s-"+uuid, uuid)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go c.Pump(ctx)

	online := types.SubstatusOnline
	for i := 0; i < 250; i++ {
		sess := sessions[i%numUsers]
		require.NoError(t, c.MeUpdate(sess, MeUpdateFields{Substatus: &online}))
		if i%numUsers == numUsers-1 {
			time.Sleep(8 * time.Millisecond) // let a pump tick land between bursts
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && c.DirtyCount() > 0 {
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, 0, c.DirtyCount())
	assert.GreaterOrEqual(t, len(adapter.saves), 3)
}
