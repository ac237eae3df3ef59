package outline

import (
	"fmt"
	"strings"
)

// Relation is where a moved node lands relative to its target.
type Relation int

const (
	// None drops onto the tree background: the node becomes a top-level
	// bookmark and any target is ignored.
	None Relation = iota
	Before
	After
	Inside
)

func (r Relation) String() string {
	switch r {
	case None:
		return "none"
	case Before:
		return "before"
	case After:
		return "after"
	case Inside:
		return "inside"
	}
	return fmt.Sprintf("relation(%d)", int(r))
}

// ParseRelation accepts the lowercase names produced by String. The empty
// string means None.
func ParseRelation(s string) (Relation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "root":
		return None, nil
	case "before", "above":
		return Before, nil
	case "after", "below":
		return After, nil
	case "inside", "into", "child":
		return Inside, nil
	}
	return None, fmt.Errorf("unknown relation %q (want before, after, inside or none)", s)
}

func (r Relation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Relation) UnmarshalText(b []byte) error {
	v, err := ParseRelation(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
