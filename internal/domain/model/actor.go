package model

// Actor identifies who performed a mutation. It is recorded on audit fields
// only; the lending core does no authorization.
type Actor struct {
	ID   string
	Name string
}

// IsZero reports whether no actor was supplied.
func (a Actor) IsZero() bool { return a.ID == "" }
