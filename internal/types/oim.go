package types

import "time"

// OIM is an offline instant message queued for delivery at next login.
type OIM struct {
	UUID string
	RunID string

	FromEmail        string
	FromFriendly     string
	FromFriendlyEnc  string
	FromFriendlyCset string
	FromUserID       Uid

	ToEmail string

	Sent     time.Time
	OriginIP string
	OIMProxy string
	Headers  string

	Text string
	UTF8 bool

	IsRead bool
}
