package ccda

import (
	"errors"

	"github.com/google/uuid"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// IDGenerator returns a fresh unique instance identifier. It is called once
// per document and once per entry that has no natural identifier.
type IDGenerator func() (string, error)

// UUIDGenerator is the production IDGenerator.
func UUIDGenerator() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
