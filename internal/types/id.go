// README: Identifier type shared across modules.
package types

// ID is an opaque identifier (user uid, waypoint document key).
type ID string

func (id ID) String() string { return string(id) }

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool { return id == "" }
