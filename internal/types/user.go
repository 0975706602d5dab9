package types

import "time"

// Uid is a dense integer identifying a User row for DB joins, distinct from
// the opaque UUID clients and other users see.
type Uid int64

// BLPAllow and BLPBlock are the two values the "BLP" settings key may hold.
const (
	BLPAllow = "AL"
	BLPBlock = "BL"
)

// User is a loaded account. Detail is non-nil only while at least one
// session has it attached (see UserDetail lifecycle, spec §3).
type User struct {
	ID       Uid
	UUID     string
	Email    string
	Verified bool
	Relay    bool

	Status UserStatus

	// Settings holds well-known keys (BLP, gtc) alongside opaque
	// front-end-specific values.
	Settings map[string]string

	// FrontData holds protocol-specific credential blobs addressed by
	// (service, key), e.g. ("msn", "pw_md5").
	FrontData map[string]map[string]string

	DateCreated  time.Time
	DateModified time.Time
	DateLogin    time.Time

	Detail *UserDetail
}

// BLP returns the effective block-list policy, defaulting to allow.
func (u *User) BLP() string {
	if u.Settings == nil {
		return BLPAllow
	}
	if v, ok := u.Settings["BLP"]; ok && v == BLPBlock {
		return BLPBlock
	}
	return BLPAllow
}

// IsOnline reports whether the user currently has a loaded detail, which
// only happens while at least one session is bound to them.
func (u *User) IsOnline() bool {
	return u.Detail != nil
}

// GetFrontData reads a protocol-specific credential blob.
func (u *User) GetFrontData(service, key string) (string, bool) {
	if u.FrontData == nil {
		return "", false
	}
	m, ok := u.FrontData[service]
	if !ok {
		return "", false
	}
	v, ok := m[key]
	return v, ok
}

// SetFrontData stores a protocol-specific credential blob.
func (u *User) SetFrontData(service, key, value string) {
	if u.FrontData == nil {
		u.FrontData = map[string]map[string]string{}
	}
	if u.FrontData[service] == nil {
		u.FrontData[service] = map[string]string{}
	}
	u.FrontData[service][key] = value
}
