package audit

import (
	"fmt"
	"time"

	"github.com/comanda-pos/comanda/internal/shared"
)

const (
	defaultRange = 7 * 24 * time.Hour
	maxRange     = 90 * 24 * time.Hour
)

// ErrInvalidRange reports a timeline window that is inverted or too wide.
var ErrInvalidRange = fmt.Errorf("%w: audit range must be ordered and at most 90 days", shared.ErrValidation)

// Filters narrows the audit timeline.
type Filters struct {
	From   time.Time
	To     time.Time
	Actor  string
	Entity string
	Action string
}

// Entry is one row of the audit timeline.
type Entry struct {
	ID       int64          `json:"id"`
	At       time.Time      `json:"at"`
	ActorID  *int64         `json:"actor_id,omitempty"`
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// Page is a window of the timeline.
type Page struct {
	Entries []Entry `json:"entries"`
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
	HasNext bool    `json:"has_next"`
}
