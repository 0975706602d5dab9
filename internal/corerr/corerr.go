// Package corerr defines the closed set of errors the notification core
// raises. Adapters translate these into protocol-specific replies; the core
// itself never wraps them in anything richer.
package corerr

import "errors"

var (
	ErrUserDoesNotExist   = errors.New("user does not exist")
	ErrContactDoesNotExist = errors.New("contact does not exist")
	ErrContactAlreadyOnList = errors.New("contact already on list")
	ErrContactNotOnList    = errors.New("contact not on list")
	ErrContactNotOnline    = errors.New("contact not online")

	ErrGroupDoesNotExist      = errors.New("group does not exist")
	ErrGroupNameTooLong       = errors.New("group name too long")
	ErrGroupAlreadyExists     = errors.New("group already exists")
	ErrCannotRemoveSpecialGroup = errors.New("cannot remove special group")

	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrServer is the catch-all for internal invariant violations; seeing
	// it escape to an adapter indicates a bug in the core, not bad input.
	ErrServer = errors.New("internal server error")
)
