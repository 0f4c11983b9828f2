package frame

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultMaxIDAttempts bounds how many ids are drawn before giving up.
const DefaultMaxIDAttempts = 8

// IDSource produces candidate ids. Candidates are expected to be unique with
// high probability but are always checked against the ids in use.
type IDSource func() (string, error)

// UUIDSource returns random (version 4) UUID strings.
func UUIDSource() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// uniqueID draws ids from src until one is not taken.
func uniqueID(src IDSource, maxAttempts int, taken func(string) bool) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxIDAttempts
	}
	for i := 0; i < maxAttempts; i++ {
		id, err := src()
		if err != nil {
			return "", fmt.Errorf("frame: id source: %w", err)
		}
		if !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrIDExhausted, maxAttempts)
}

// generateConsumerID returns an id not present among the registry keys.
// Must be called with r.mu held.
func (r *Registry) generateConsumerID() (string, error) {
	return uniqueID(r.idSource, r.maxIDAttempts, func(id string) bool {
		_, ok := r.entries[id]
		return ok
	})
}

// generateListenerID returns an id not present among c's listener keys.
// Must be called with the registry lock held.
func (c *consumer[T]) generateListenerID() (string, error) {
	return uniqueID(c.reg.idSource, c.reg.maxIDAttempts, func(id string) bool {
		_, ok := c.listeners[id]
		return ok
	})
}
