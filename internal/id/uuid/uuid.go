// Package uuid provides ID generation helpers.
package uuid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator creates identifiers for jobs and requests.
type Generator struct{}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// NewSuffix returns a short random suffix suitable for composing job IDs.
func (Generator) NewSuffix() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid4: %w", err)
	}
	return strings.SplitN(id.String(), "-", 2)[0], nil
}
