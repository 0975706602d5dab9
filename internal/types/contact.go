package types

import "time"

// ContactInfo carries free-form profile fields mirrored from legacy address
// book records. None of it drives core behavior; it is opaque payload the
// core stores and returns unchanged.
type ContactInfo struct {
	DisplayName string
	FirstName   string
	MiddleName  string
	LastName    string
	Nickname    string

	Birthdate    *time.Time
	Anniversary  *time.Time
	Notes        string

	PrimaryEmailType string
	PersonalEmail    string
	WorkEmail        string
	IMEmail          string
	OtherEmail       string

	HomePhone   string
	WorkPhone   string
	FaxPhone    string
	PagerPhone  string
	MobilePhone string
	OtherPhone  string

	PersonalWebsite string
	BusinessWebsite string

	Locations []ContactLocation
}

// ContactLocation is one address entry in ContactInfo.Locations.
type ContactLocation struct {
	Type    string
	Name    string
	Street  string
	City    string
	State   string
	Country string
	Zip     string
}

// GroupEntry is one (contact, group) membership row.
type GroupEntry struct {
	ContactUUID string
	GroupID     string
	GroupUUID   string
}

// Contact is a directed edge from the owning User's detail to another User
// (Head). Status is the owner's visibility-filtered view of Head's presence,
// recomputed on every change that could affect it (spec I5).
type Contact struct {
	Head *User

	Lists  Lst
	Groups []GroupEntry

	Status StatusHolder
	Info   ContactInfo

	IsFavorite       bool
	IsMessengerUser  bool
}

// StatusHolder is the contact-side copy of a UserStatus, distinguished from
// the owning User's own status only by being derived, never authoritative.
type StatusHolder = UserStatus

// InGroup reports whether the contact is filed under the given group id.
func (c *Contact) InGroup(groupID string) bool {
	for _, g := range c.Groups {
		if g.GroupID == groupID {
			return true
		}
	}
	return false
}

// AddToGroup records membership; the caller is responsible for setting FL
// (spec I4: group membership implies FL).
func (c *Contact) AddToGroup(groupID, groupUUID string) {
	if c.InGroup(groupID) {
		return
	}
	c.Groups = append(c.Groups, GroupEntry{
		ContactUUID: c.Head.UUID,
		GroupID:     groupID,
		GroupUUID:   groupUUID,
	})
}

// RemoveFromGroup drops the membership row for groupID, if present.
//
// The entry discarded is the one located by the search, not some unrelated
// value from an enclosing scope.
func (c *Contact) RemoveFromGroup(groupID string) {
	for i, g := range c.Groups {
		if g.GroupID == groupID {
			c.Groups = append(c.Groups[:i], c.Groups[i+1:]...)
			return
		}
	}
}

// PurgeGroup scrubs every membership referencing groupID, used when the
// group itself is deleted.
func (c *Contact) PurgeGroup(groupID string) {
	kept := c.Groups[:0]
	for _, g := range c.Groups {
		if g.GroupID != groupID {
			kept = append(kept, g)
		}
	}
	c.Groups = kept
}
