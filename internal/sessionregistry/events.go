package sessionregistry

import "github.com/toeserve/presenced/internal/types"

// Event is the closed set of notifications the core delivers to a Session.
// Adapters type-switch on the concrete type to encode a wire message; this
// mirrors a tagged union rather than a polymorphic class hierarchy.
type Event interface {
	isEvent()
}

// PresenceEvent announces that one of the receiving user's contacts has a
// new visible status.
type PresenceEvent struct {
	Contact *types.Contact
}

// AddedToListEvent announces that the acting user was added to List on the
// receiver's contact edge (used for the RL mirror of a remote FL add).
type AddedToListEvent struct {
	List Lst
	User *types.User
}

// Lst re-exports types.Lst so adapters importing this package don't also
// need to import internal/types just to read the field above.
type Lst = types.Lst

// InvitedToChatEvent carries a switchboard invitation.
type InvitedToChatEvent struct {
	Address SBAddress
	ChatID  string
	Token   string
	Caller  *types.User
}

// SBAddress is a switchboard host/port pair.
type SBAddress struct {
	Host string
	Port int
}

// ChatParticipantJoinedEvent / ChatParticipantLeftEvent announce switchboard
// roster churn; the core relays these without interpreting them.
type ChatParticipantJoinedEvent struct {
	ChatID string
	User   *types.User
}

type ChatParticipantLeftEvent struct {
	ChatID string
	User   *types.User
}

// ChatMessageEvent relays an in-switchboard message.
type ChatMessageEvent struct {
	ChatID string
	From   *types.User
	Type   types.MessageType
	Text   string
}

// ContactRequestDeniedEvent announces that a pending contact request was
// rejected by the would-be contact.
type ContactRequestDeniedEvent struct {
	ContactUUID string
}

// PopBootEvent tells a session it is being disconnected because another
// login used BootOthers.
type PopBootEvent struct{}

// PopNotifyEvent is an adapter-defined out-of-band notice (e.g. legacy
// "your contact list changed elsewhere" banner); payload is opaque to the
// core.
type PopNotifyEvent struct {
	Reason string
}

func (PresenceEvent) isEvent()              {}
func (AddedToListEvent) isEvent()           {}
func (InvitedToChatEvent) isEvent()         {}
func (ChatParticipantJoinedEvent) isEvent() {}
func (ChatParticipantLeftEvent) isEvent()   {}
func (ChatMessageEvent) isEvent()           {}
func (ContactRequestDeniedEvent) isEvent()  {}
func (PopBootEvent) isEvent()               {}
func (PopNotifyEvent) isEvent()             {}
