package id

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

var mu = &sync.Mutex{}

// GetUUID generates a new UUID.
func GetUUID() string {
	mu.Lock()
	defer mu.Unlock()
	return uuid.NewString()
}

// GetUUIDWithoutDashes generates a new UUID with dashes stripped.
func GetUUIDWithoutDashes() string {
	mu.Lock()
	defer mu.Unlock()
	return strings.Replace(uuid.NewString(), "-", "", -1)
}

// GetULID generates a lexicographically sortable unique id.
// Used for process ids so batch records sort by creation time.
func GetULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	ms := ulid.Timestamp(time.Now())
	v, err := ulid.New(ms, entropy)
	if err != nil {
		return ""
	}
	return v.String()
}

// ShortID generates a short human-pasteable id.
func ShortID() string {
	v, err := shortid.Generate()
	if err != nil {
		return ""
	}
	return v
}
