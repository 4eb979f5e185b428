// Package petstore is a small end-to-end exercise of the contract
// pipeline: an in-memory pet collection exposed through a declared
// controller.
package petstore

import (
	"time"

	"github.com/google/uuid"
)

// Pet is the stored representation of one pet.
type Pet struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Tag       *string   `json:"tag,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewPet is the request body for creating or replacing a pet.
type NewPet struct {
	Name string  `json:"name"`
	Tag  *string `json:"tag,omitempty"`
}

// ListFilter narrows a pet listing.
type ListFilter struct {
	Tag   *string `json:"tag,omitempty"`
	Limit *int    `json:"limit,omitempty"`
}
