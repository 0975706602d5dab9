// Package wsgateway is a thin demonstration wire adapter exposing
// NotificationCore over JSON-over-WebSocket, standing in for the
// out-of-scope MSNP front-end (spec §1, §6 "wire-protocol adapters").
package wsgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/toeserve/presenced/internal/notify"
	"github.com/toeserve/presenced/internal/sessionregistry"
	"github.com/toeserve/presenced/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway upgrades incoming HTTP connections and translates JSON command
// frames into Core calls, relaying Core events back as JSON frames.
type Gateway struct {
	core *notify.Core
	log  *logrus.Logger
}

// New builds a Gateway bound to core.
func New(core *notify.Core, log *logrus.Logger) *Gateway {
	return &Gateway{core: core, log: log}
}

// command is the envelope every inbound frame uses.
type command struct {
	Op    string          `json:"op"`
	Email string          `json:"email,omitempty"`
	Token string          `json:"token,omitempty"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// reply is the envelope every outbound frame uses, for both command
// responses and asynchronous events.
type reply struct {
	Op    string      `json:"op"`
	OK    bool        `json:"ok"`
	Error string      `json:"error,omitempty"`
	Body  interface{} `json:"body,omitempty"`
}

// ServeHTTP implements http.Handler, upgrading the connection and running
// the read/write loops for its lifetime.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.WithError(err).Warn("wsgateway: upgrade failed")
		return
	}
	defer conn.Close()

	sess := sessionregistry.New(uuid.NewString())
	done := make(chan struct{})

	go g.writeLoop(conn, sess, done)
	g.readLoop(r.Context(), conn, sess)

	g.core.OnConnectionLost(sess)
	close(done)
}

func (g *Gateway) writeLoop(conn *websocket.Conn, sess *sessionregistry.Session, done <-chan struct{}) {
	for {
		select {
		case ev, ok := <-sess.Out():
			if !ok {
				return
			}
			if err := conn.WriteJSON(toWireEvent(ev)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, sess *sessionregistry.Session) {
	for {
		var cmd command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		resp := g.dispatch(ctx, sess, cmd)
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (g *Gateway) dispatch(ctx context.Context, sess *sessionregistry.Session, cmd command) reply {
	switch cmd.Op {
	case "login_twn_verify":
		var body struct {
			Email string `json:"email"`
			Token string `json:"token"`
		}
		json.Unmarshal(cmd.Body, &body)
		u, err := g.core.LoginTwnVerify(ctx, sess, body.Token)
		if err != nil {
			return errReply(cmd.Op, err)
		}
		return okReply(cmd.Op, map[string]string{"uuid": u.UUID})

	case "me_update":
		var fields notify.MeUpdateFields
		json.Unmarshal(cmd.Body, &fields)
		if err := g.core.MeUpdate(sess, fields); err != nil {
			return errReply(cmd.Op, err)
		}
		return okReply(cmd.Op, nil)

	case "contact_add":
		var body struct {
			ContactUUID string `json:"contact_uuid"`
			List        string `json:"list"`
			Name        string `json:"name"`
		}
		json.Unmarshal(cmd.Body, &body)
		lst := parseLst(body.List)
		_, _, err := g.core.ContactAdd(ctx, sess, body.ContactUUID, lst, body.Name)
		if err != nil {
			return errReply(cmd.Op, err)
		}
		return okReply(cmd.Op, nil)

	case "sb_token_create":
		token, addr, err := g.core.SBTokenCreate(sess, nil)
		if err != nil {
			return errReply(cmd.Op, err)
		}
		return okReply(cmd.Op, map[string]interface{}{"token": token, "host": addr.Host, "port": addr.Port})

	default:
		return reply{Op: cmd.Op, OK: false, Error: "unknown op"}
	}
}

func parseLst(s string) types.Lst {
	switch s {
	case "FL":
		return types.LstFL
	case "AL":
		return types.LstAL
	case "BL":
		return types.LstBL
	default:
		return 0
	}
}

func okReply(op string, body interface{}) reply {
	return reply{Op: op, OK: true, Body: body}
}

func errReply(op string, err error) reply {
	return reply{Op: op, OK: false, Error: err.Error()}
}

func toWireEvent(ev sessionregistry.Event) reply {
	switch e := ev.(type) {
	case sessionregistry.PresenceEvent:
		return reply{Op: "presence", OK: true, Body: map[string]interface{}{
			"uuid":      e.Contact.Head.UUID,
			"substatus": e.Contact.Status.Substatus.String(),
			"name":      e.Contact.Status.Name,
		}}
	case sessionregistry.AddedToListEvent:
		return reply{Op: "added_to_list", OK: true, Body: map[string]interface{}{
			"list": e.List.String(),
			"uuid": e.User.UUID,
		}}
	case sessionregistry.InvitedToChatEvent:
		return reply{Op: "invited_to_chat", OK: true, Body: map[string]interface{}{
			"host":    e.Address.Host,
			"port":    e.Address.Port,
			"chat_id": e.ChatID,
			"token":   e.Token,
			"caller":  e.Caller.UUID,
		}}
	default:
		return reply{Op: "event", OK: true}
	}
}
