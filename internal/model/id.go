package model

import (
	"encoding/hex"
	"fmt"
)

// IDSize is the length in bytes of every ledger identifier and hash.
const IDSize = 32

// ID is a fixed-size opaque identifier (request id, session id, or caller
// identity). The zero value is the reserved "absent" sentinel and is never a
// valid key.
type ID [IDSize]byte

// Hash is an opaque content commitment. It shares the ID representation; the
// zero value doubles as the "not yet set" marker for responses.
type Hash = ID

// ZeroID is the absent sentinel.
var ZeroID ID

// IsZero reports whether the identifier is the absent sentinel.
func (id ID) IsZero() bool {
	return id == ZeroID
}

// String returns the lowercase hex encoding.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the first 8 hex characters, for log fields.
func (id ID) Short() string {
	return hex.EncodeToString(id[:4])
}

// ParseID decodes a 64-character hex string into an ID. An optional "0x"
// prefix is accepted.
func ParseID(s string) (ID, error) {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	var id ID
	if len(s) != IDSize*2 {
		return ZeroID, fmt.Errorf("identifier must be %d hex characters, got %d", IDSize*2, len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return ZeroID, fmt.Errorf("invalid hex identifier: %w", err)
	}
	return id, nil
}

// MarshalText implements encoding.TextMarshaler so identifiers serialize as
// hex strings in JSON payloads and journal records.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
