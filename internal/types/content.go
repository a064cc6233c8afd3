package types

import "github.com/google/uuid"

// Content lifecycle states. Listing endpoints filter on these before the
// decision engine is ever consulted; the engine only checks existence.
const (
	ContentStatusPublished = "published"
	ContentStatusArchived  = "archived"
	ContentStatusDeleted   = "deleted"
)

// ContentMetadata carries the access-relevant attributes of a piece of
// content. It is the cached projection, not the full content row.
type ContentMetadata struct {
	ID        uuid.UUID `json:"id"`
	IsFree    bool      `json:"isFree"`
	CreatorID uuid.UUID `json:"creatorId"`
	Status    string    `json:"status"`
}
