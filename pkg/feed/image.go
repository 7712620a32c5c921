// Package feed holds the value types shared by every feed cache backend.
package feed

import (
	"fmt"

	"github.com/google/uuid"
)

// Image is a single image reference in a feed. ID and URL are mandatory;
// Description and Location may be absent. Identity is the ID alone.
type Image struct {
	ID          uuid.UUID
	Description *string
	Location    *string
	URL         string
}

// Feed is an ordered sequence of images. Order is significant and must
// survive an insert/retrieve round-trip exactly.
type Feed []Image

// NewImage validates the mandatory fields and returns an immutable Image value.
func NewImage(id uuid.UUID, description, location *string, url string) (Image, error) {
	if id == uuid.Nil {
		return Image{}, fmt.Errorf("image id is required")
	}
	if url == "" {
		return Image{}, fmt.Errorf("image url is required")
	}
	return Image{
		ID:          id,
		Description: description,
		Location:    location,
		URL:         url,
	}, nil
}
