package storage

import (
	"strconv"

	"github.com/google/uuid"
)

// NewDocumentID returns an opaque identifier for engines without a sequence.
// UUIDv7 values are time-ordered but callers must not rely on that; recency
// ordering uses created_at.
func NewDocumentID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// FormatSequenceID renders an engine-issued integer key.
func FormatSequenceID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseSequenceID parses an integer key. Anything that could not have been
// issued by a sequence (non-numeric, zero, negative) reports false.
func ParseSequenceID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
