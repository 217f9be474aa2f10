package core

import "github.com/google/uuid"

// Id prefixes per collection.
const (
	PrefixEvent = "event"
	PrefixHead  = "head"
	PrefixEntry = "entry"
)

// IDSource hands out identifiers that are never reused.
type IDSource interface {
	NewID(prefix string) string
}

// UUIDSource generates "<prefix>-<random uuid>" identifiers.
type UUIDSource struct{}

func (UUIDSource) NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
