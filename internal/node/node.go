// Package node defines the 20-byte identifiers used for file revisions and
// serialized directory objects.
package node

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Size is the length of an ID in bytes.
const Size = 20

// ID is a content-derived identifier.
type ID [Size]byte

// Null is the all-zero ID. It marks an absent file or an unwritten directory.
var Null ID

// IsNull reports whether id is the all-zero ID.
func (id ID) IsNull() bool {
	return id == Null
}

// Hex returns the 40 character lowercase hex encoding.
func (id ID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id ID) String() string {
	return id.Hex()
}

// Short returns the first 12 hex characters, for log output.
func (id ID) Short() string {
	return id.Hex()[:12]
}

// FromHex parses a 40 character hex string.
func FromHex(s string) (ID, error) {
	var id ID
	if len(s) != 2*Size {
		return id, fmt.Errorf("invalid node id %q: want %d hex characters", s, 2*Size)
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("invalid node id %q: %w", s, err)
	}
	return id, nil
}

// FromBytes copies a 20 byte slice into an ID.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, fmt.Errorf("invalid node id length %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Sum hashes an object of the given kind.
// Format: "{kind} {size}\0{data}" → SHA-1
func Sum(kind string, data []byte) ID {
	h := sha1.New()
	h.Write([]byte(kind + " " + strconv.Itoa(len(data)) + "\x00"))
	h.Write(data)
	var id ID
	copy(id[:], h.Sum(nil))
	return id
}
