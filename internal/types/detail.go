package types

// UserDetail is the owned-by-exactly-one-User aggregate of groups and
// contacts (spec I6: at most one instance per User exists in memory).
type UserDetail struct {
	groupsByID   map[string]*Group
	groupsByUUID map[string]*Group

	Contacts map[string]*Contact // keyed by contact head UUID
}

// NewUserDetail builds an empty detail ready for group/contact population.
func NewUserDetail() *UserDetail {
	return &UserDetail{
		groupsByID:   map[string]*Group{},
		groupsByUUID: map[string]*Group{},
		Contacts:     map[string]*Contact{},
	}
}

// GroupByID looks a group up by its short id.
func (d *UserDetail) GroupByID(id string) (*Group, bool) {
	g, ok := d.groupsByID[id]
	return g, ok
}

// GroupByUUID looks a group up by its stable uuid.
func (d *UserDetail) GroupByUUID(uuid string) (*Group, bool) {
	g, ok := d.groupsByUUID[uuid]
	return g, ok
}

// Groups returns every group, in no particular order.
func (d *UserDetail) Groups() []*Group {
	out := make([]*Group, 0, len(d.groupsByID))
	for _, g := range d.groupsByID {
		out = append(out, g)
	}
	return out
}

// PutGroup indexes g under both its id and uuid.
func (d *UserDetail) PutGroup(g *Group) {
	d.groupsByID[g.ID] = g
	d.groupsByUUID[g.UUID] = g
}

// DeleteGroup removes a group from both indexes.
func (d *UserDetail) DeleteGroup(id string) {
	if g, ok := d.groupsByID[id]; ok {
		delete(d.groupsByUUID, g.UUID)
		delete(d.groupsByID, id)
	}
}

// FindGroupsByName resolves a name loosely: an exact match, or a name that
// is a numbered continuation of it (e.g. "Friends" matches "Friends (2)").
// Supplemental legacy lookup (SPEC_FULL §"Group-name continuation
// matching"); the core's own mutation path never calls this — it validates
// names exactly.
func (d *UserDetail) FindGroupsByName(name string) []*Group {
	var out []*Group
	for _, g := range d.groupsByID {
		if g.Name == name || isNumberedContinuationOf(g.Name, name) {
			out = append(out, g)
		}
	}
	return out
}

func isNumberedContinuationOf(candidate, base string) bool {
	if len(candidate) <= len(base) || candidate[:len(base)] != base {
		return false
	}
	rest := candidate[len(base):]
	if len(rest) < 4 || rest[0] != ' ' || rest[1] != '(' || rest[len(rest)-1] != ')' {
		return false
	}
	for _, r := range rest[2 : len(rest)-1] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// GroupIDInUse reports whether id is already allocated.
func (d *UserDetail) GroupIDInUse(id string) bool {
	_, ok := d.groupsByID[id]
	return ok
}
