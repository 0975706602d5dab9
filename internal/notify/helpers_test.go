package notify

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/toeserve/presenced/internal/authservice"
	"github.com/toeserve/presenced/internal/config"
	"github.com/toeserve/presenced/internal/sessionregistry"
	"github.com/toeserve/presenced/internal/store/oim"
	"github.com/toeserve/presenced/internal/types"
	"github.com/toeserve/presenced/internal/userservice"
)

func newTestUserService(t *testing.T, adapter *fakeAdapter) *userservice.Service {
	t.Helper()
	return userservice.New(adapter, oim.New(t.TempDir()))
}

func newTestCore(t *testing.T) (*Core, *fakeAdapter) {
	t.Helper()

	adapter := newFakeAdapter()
	cfg := &config.Config{
		DefaultBLP:         types.BLPAllow,
		MaxGroupNameLength: 61,
		PumpInterval:       10 * time.Millisecond,
		PumpBatchSize:      100,
		LoginTokenLifetime: 30 * time.Second,
		CallTokenLifetime:  30 * time.Second,
		Switchboard:        config.SwitchboardAddress{Host: "sb.example", Port: 1864},
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	users := newTestUserService(t, adapter)
	auth := authservice.New(time.Minute)
	sessions := sessionregistry.New()

	return New(cfg, sessions, users, auth, log), adapter
}

func seedUser(adapter *fakeAdapter, uuid, email string) *types.User {
	u := &types.User{
		UUID:      uuid,
		Email:     email,
		Settings:  map[string]string{},
		FrontData: map[string]map[string]string{},
	}
	u.Status.Name = email
	adapter.seed(u)
	return u
}

func recvEvent(t *testing.T, sess *sessionregistry.Session) sessionregistry.Event {
	t.Helper()
	select {
	case ev := <-sess.Out():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func drainNoEvent(t *testing.T, sess *sessionregistry.Session) {
	t.Helper()
	select {
	case ev := <-sess.Out():
		t.Fatalf("unexpected event: %#v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func login(t *testing.T, c *Core, sessUUID, userUUID string) *sessionregistry.Session {
	t.Helper()
	sess := sessionregistry.New(sessUUID)
	_, err := c.loginCommon(context.Background(), sess, userUUID)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return sess
}
