package types

import "strconv"

// Substatus is the fine-grained presence state of a user.
type Substatus int

const (
	SubstatusOffline Substatus = iota
	SubstatusOnline
	SubstatusBusy
	SubstatusIdle
	SubstatusBRB
	SubstatusAway
	SubstatusOnPhone
	SubstatusOutToLunch
	SubstatusInvisible
	SubstatusNotAtHome
	SubstatusNotAtDesk
	SubstatusNotInOffice
	SubstatusOnVacation
	SubstatusSteppedOut
)

var substatusNames = [...]string{
	"Offline", "Online", "Busy", "Idle", "BRB", "Away", "OnPhone",
	"OutToLunch", "Invisible", "NotAtHome", "NotAtDesk", "NotInOffice",
	"OnVacation", "SteppedOut",
}

func (s Substatus) String() string {
	if s < 0 || int(s) >= len(substatusNames) {
		return "Offline"
	}
	return substatusNames[s]
}

// IsOfflineish reports whether the substatus is treated as unreachable for
// switchboard invitation purposes (§4.7).
func (s Substatus) IsOfflineish() bool {
	return s == SubstatusOffline || s == SubstatusInvisible
}

// Lst holds the directed list bits of a contact edge: Forward, Allow, Block,
// Reverse, Pending.
type Lst uint8

const (
	LstFL Lst = 1 << iota
	LstAL
	LstBL
	LstRL
	LstPL
)

func (l Lst) Has(bit Lst) bool { return l&bit != 0 }

func (l Lst) String() string {
	s := ""
	for _, p := range []struct {
		b Lst
		n string
	}{{LstFL, "FL"}, {LstAL, "AL"}, {LstBL, "BL"}, {LstRL, "RL"}, {LstPL, "PL"}} {
		if l.Has(p.b) {
			s += p.n
		}
	}
	return s
}

// NetworkID identifies the originating IM network of a contact address.
// Most of this core's logic is network-agnostic; adapters use it to
// interpret email-like identifiers.
type NetworkID int

const (
	NetworkIDUnknown NetworkID = iota
	NetworkIDWindowsLive
	NetworkIDYahoo
	NetworkIDTelephone
)

// MessageType discriminates informal message payloads exchanged through a
// switchboard (not persisted by this core; carried for OIM/event bodies).
type MessageType int

const (
	MessageTypePlain MessageType = iota
	MessageTypeNudge
	MessageTypeTypingUser
	MessageTypeWink
)

// LoginOption is a bit-set of client-requested login behaviors.
type LoginOption uint8

const (
	// LoginOptionBootOthers disconnects any other live session of the same
	// user as part of completing this login.
	LoginOptionBootOthers LoginOption = 1 << iota
)

func (l LoginOption) Has(opt LoginOption) bool { return l&opt != 0 }

func (s Substatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Substatus) UnmarshalText(b []byte) error {
	name := string(b)
	for i, n := range substatusNames {
		if n == name {
			*s = Substatus(i)
			return nil
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 && n < len(substatusNames) {
		*s = Substatus(n)
		return nil
	}
	*s = SubstatusOffline
	return nil
}
