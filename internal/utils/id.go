package utils

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// NewID returns a unique connection identifier.
func NewID() string {
	return uuid.NewString()
}

// NewStrokeID builds a stroke identifier unique per author and creation
// time. The ksuid part is time-ordered, so ids from one author sort in the
// order they were created.
func NewStrokeID(author string) string {
	id := ksuid.New().String()
	if author == "" {
		return id
	}
	return author + "-" + id
}
