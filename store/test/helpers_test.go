package test

import (
	"github.com/google/uuid"
)

// uniqueName keeps tests independent when they share a PostgreSQL database.
func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func ptr[T any](v T) *T {
	return &v
}
