package types

import (
	"time"

	"github.com/google/uuid"
)

// ItineraryArtifact is the persisted record of one planning run. Document
// holds the full enriched-plan array as JSON.
type ItineraryArtifact struct {
	ID          uuid.UUID `json:"id"`
	RunID       uuid.UUID `json:"run_id"`
	UserQuery   string    `json:"user_query"`
	Destination string    `json:"destination"`
	PlanCount   int       `json:"plan_count"`
	Document    []byte    `json:"document"`
	CreatedAt   time.Time `json:"created_at"`
}
