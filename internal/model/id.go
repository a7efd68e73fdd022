package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// ID identifies a task for its whole lifetime. Older clients minted numeric ids
// (milliseconds since epoch), newer ones mint UUIDv7 strings; both compare by their
// textual form and re-encode in the form they were read in.
type ID struct {
	value   string
	numeric bool
}

// NewID mints a time-ordered UUIDv7 id, falling back to a random v4.
func NewID() ID {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return ID{value: u.String()}
}

// ParseID wraps a textual id as given on the command line or in a UI event.
func ParseID(s string) ID {
	return ID{value: s}
}

func (id ID) String() string { return id.value }

func (id ID) IsZero() bool { return id.value == "" }

// Equal reports whether two ids name the same task, regardless of wire form.
func (id ID) Equal(other ID) bool { return id.value == other.value }

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ID{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("task id: %w", err)
		}
		*id = ID{value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	// Normalize 1.7e12 style numbers so both devices agree on the key.
	if i, err := n.Int64(); err == nil {
		*id = ID{value: strconv.FormatInt(i, 10), numeric: true}
		return nil
	}
	if f, err := n.Float64(); err == nil {
		*id = ID{value: strconv.FormatFloat(f, 'f', -1, 64), numeric: true}
		return nil
	}
	return fmt.Errorf("task id: unsupported number %q", n)
}
