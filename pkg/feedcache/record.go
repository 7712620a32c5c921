package feedcache

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/illmade-knight/go-feedcache/pkg/feed"
)

// CacheRecord is the persisted rendering of a snapshot: the timestamp plus
// the image rows in feed order. At most one record exists in a collaborator
// at any time.
type CacheRecord struct {
	Timestamp time.Time
	Images    []ImageRecord
}

// ImageRecord is the persisted rendering of one image. ID and URL are stored
// as plain strings so a collaborator can hand back whatever it finds; decoding
// back into the model is where validity is enforced.
type ImageRecord struct {
	ID          string  `json:"id" firestore:"id"`
	Description *string `json:"description,omitempty" firestore:"description,omitempty"`
	Location    *string `json:"location,omitempty" firestore:"location,omitempty"`
	URL         string  `json:"url" firestore:"url"`
}

// encodeRecord maps a feed into its persisted form, preserving order.
func encodeRecord(f feed.Feed, timestamp time.Time) CacheRecord {
	images := make([]ImageRecord, 0, len(f))
	for _, img := range f {
		images = append(images, ImageRecord{
			ID:          img.ID.String(),
			Description: img.Description,
			Location:    img.Location,
			URL:         img.URL,
		})
	}
	return CacheRecord{Timestamp: timestamp, Images: images}
}

// decodeImage rebuilds a model image from its persisted form. A record
// missing either mandatory field is unrecoverable.
func decodeImage(rec ImageRecord) (feed.Image, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return feed.Image{}, fmt.Errorf("image id %q is not a valid uuid: %w", rec.ID, err)
	}
	return feed.NewImage(id, rec.Description, rec.Location, rec.URL)
}
