package area

import "time"

// Area is a logical region of the home (room, floor, outdoor zone) that
// clients can be scoped to.
type Area struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsEnabled bool      `json:"is_enabled"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
