package sessionregistry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toeserve/presenced/internal/types"
)

func newSess(uuid, token string, u *types.User) *Session {
	s := New(uuid)
	s.Token = token
	s.User = u
	return s
}

func TestAddGetByUserAndToken(t *testing.T) {
	r := New()
	u := &types.User{UUID: "u-a"}
	sess := newSess("s1", "tok1", u)

	r.Add(sess)

	got := r.GetByUser(u)
	require.Len(t, got, 1)
	assert.Same(t, sess, got[0])

	assert.Same(t, sess, r.GetByToken("tok1"))
	assert.True(t, r.HasAnySession(u))
}

func TestMultipleSessionsPerUser(t *testing.T) {
	r := New()
	u := &types.User{UUID: "u-a"}
	s1 := newSess("s1", "t1", u)
	s2 := newSess("s2", "t2", u)

	r.Add(s1)
	r.Add(s2)

	got := r.GetByUser(u)
	assert.Len(t, got, 2)
}

func TestRemoveDropsBothIndexes(t *testing.T) {
	r := New()
	u := &types.User{UUID: "u-a"}
	sess := newSess("s1", "tok1", u)
	r.Add(sess)

	r.Remove(sess)

	assert.Empty(t, r.GetByUser(u))
	assert.Nil(t, r.GetByToken("tok1"))
	assert.False(t, r.HasAnySession(u))
}

func TestRemoveUnknownSessionIsNoop(t *testing.T) {
	r := New()
	u := &types.User{UUID: "u-a"}
	sess := newSess("s1", "tok1", u)
	assert.NotPanics(t, func() { r.Remove(sess) })
}

func TestRemoveOneOfMultipleKeepsOthers(t *testing.T) {
	r := New()
	u := &types.User{UUID: "u-a"}
	s1 := newSess("s1", "t1", u)
	s2 := newSess("s2", "t2", u)
	r.Add(s1)
	r.Add(s2)

	r.Remove(s1)

	got := r.GetByUser(u)
	require.Len(t, got, 1)
	assert.Same(t, s2, got[0])
	assert.True(t, r.HasAnySession(u))
}

func TestAddWithoutUserPanics(t *testing.T) {
	r := New()
	sess := New("s1")
	assert.Panics(t, func() { r.Add(sess) })
}

func TestIterAllSnapshotsAcrossUsers(t *testing.T) {
	r := New()
	ua := &types.User{UUID: "u-a"}
	ub := &types.User{UUID: "u-b"}
	r.Add(newSess("s1", "t1", ua))
	r.Add(newSess("s2", "t2", ua))
	r.Add(newSess("s3", "t3", ub))

	all := r.IterAll()
	assert.Len(t, all, 3)
}

// TestConcurrentAddRemoveIterate exercises the registry under a race
// detector: many goroutines adding, removing, and snapshotting at once
// must never deadlock or corrupt the indexes.
func TestConcurrentAddRemoveIterate(t *testing.T) {
	r := New()
	const n = 50

	var wg sync.WaitGroup
	sessions := make([]*Session, n)
	for i := 0; i < n; i++ {
		u := &types.User{UUID: string(rune('a' + i%26))}
		sessions[i] = newSess("s", "tok", u)
	}

	wg.Add(n * 2)
	for i := 0; i < n; i++ {
		sess := sessions[i]
		go func() {
			defer wg.Done()
			r.Add(sess)
		}()
		go func() {
			defer wg.Done()
			_ = r.IterAll()
		}()
	}
	wg.Wait()

	wg.Add(n)
	for i := 0; i < n; i++ {
		sess := sessions[i]
		go func() {
			defer wg.Done()
			r.Remove(sess)
		}()
	}
	wg.Wait()

	assert.Empty(t, r.IterAll())
}
