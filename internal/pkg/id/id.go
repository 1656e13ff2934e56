package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. Used for user and credential ids; ULIDs
// sort by creation time and are never reused.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
