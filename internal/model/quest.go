package model

import (
	"strings"
	"time"
)

// Route size limits for a quest
const (
	MinQuestLocations = 4
	MaxQuestLocations = 10
)

// Quest is a themed route of checkpoints between a start and a final location
type Quest struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	City          string     `json:"city"`
	District      string     `json:"district,omitempty"`
	LocationCount int        `json:"location_count"`
	Price         int        `json:"price"`
	StartLocation Location   `json:"start_location"`
	FinalLocation Location   `json:"final_location"`
	Locations     []Location `json:"locations"`
	Conditions    string     `json:"conditions"`
	IsActive      bool       `json:"is_active"`
	Media         *Media     `json:"media,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// QuestFilter narrows quest listings
type QuestFilter struct {
	City       string
	District   string
	ActiveOnly bool
}

// Checkpoint returns the route entry at index i
func (q *Quest) Checkpoint(i int) (*Location, bool) {
	if i < 0 || i >= len(q.Locations) {
		return nil, false
	}
	return &q.Locations[i], true
}

// RouteLength is the number of checkpoints a player has to visit
func (q *Quest) RouteLength() int {
	return len(q.Locations)
}

// PublicQuest is the catalog view of a quest
type PublicQuest struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	City          string           `json:"city"`
	District      string           `json:"district,omitempty"`
	LocationCount int              `json:"location_count"`
	Price         int              `json:"price"`
	StartLocation PublicLocation   `json:"start_location"`
	FinalLocation PublicLocation   `json:"final_location"`
	Locations     []PublicLocation `json:"locations"`
	Conditions    string           `json:"conditions"`
	IsActive      bool             `json:"is_active"`
	Media         *Media           `json:"media,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ToPublic removes the questions from every embedded location
func (q *Quest) ToPublic() PublicQuest {
	locations := make([]PublicLocation, 0, len(q.Locations))
	for i := range q.Locations {
		locations = append(locations, q.Locations[i].ToPublic())
	}
	return PublicQuest{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		City:          q.City,
		District:      q.District,
		LocationCount: q.LocationCount,
		Price:         q.Price,
		StartLocation: q.StartLocation.ToPublic(),
		FinalLocation: q.FinalLocation.ToPublic(),
		Locations:     locations,
		Conditions:    q.Conditions,
		IsActive:      q.IsActive,
		Media:         q.Media,
		CreatedAt:     q.CreatedAt,
	}
}

// QuestRequest creates or replaces a quest from library locations
type QuestRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	City            string   `json:"city"`
	District        string   `json:"district,omitempty"`
	Price           int      `json:"price"`
	StartLocationID string   `json:"start_location_id"`
	FinalLocationID string   `json:"final_location_id"`
	LocationIDs     []string `json:"location_ids"`
	Conditions      string   `json:"conditions"`
	IsActive        *bool    `json:"is_active,omitempty"`
	Media           *Media   `json:"media,omitempty"`
}

// Validate validates the quest form
func (r *QuestRequest) Validate() []FieldError {
	var errors []FieldError

	if strings.TrimSpace(r.Title) == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(r.City) == "" {
		errors = append(errors, FieldError{Field: "city", Message: "city is required"})
	}
	if r.Price < 0 {
		errors = append(errors, FieldError{Field: "price", Message: "price cannot be negative"})
	}
	if r.StartLocationID == "" {
		errors = append(errors, FieldError{Field: "start_location_id", Message: "start_location_id is required"})
	}
	if r.FinalLocationID == "" {
		errors = append(errors, FieldError{Field: "final_location_id", Message: "final_location_id is required"})
	}
	if n := len(r.LocationIDs); n < MinQuestLocations || n > MaxQuestLocations {
		errors = append(errors, FieldError{Field: "location_ids", Message: "a quest needs between 4 and 10 locations"})
	}
	seen := make(map[string]bool, len(r.LocationIDs))
	for _, id := range r.LocationIDs {
		if seen[id] {
			errors = append(errors, FieldError{Field: "location_ids", Message: "location " + id + " appears more than once"})
			break
		}
		seen[id] = true
	}

	return errors
}

// QuestPatch toggles catalog visibility without rebuilding the route
type QuestPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *int    `json:"price,omitempty"`
	Conditions  *string `json:"conditions,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Validate validates the patch
func (p *QuestPatch) Validate() []FieldError {
	var errors []FieldError
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title cannot be empty"})
	}
	if p.Price != nil && *p.Price < 0 {
		errors = append(errors, FieldError{Field: "price", Message: "price cannot be negative"})
	}
	return errors
}

// Apply copies the present fields onto the quest
func (p *QuestPatch) Apply(q *Quest) {
	if p.Title != nil {
		q.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.Price != nil {
		q.Price = *p.Price
	}
	if p.Conditions != nil {
		q.Conditions = *p.Conditions
	}
	if p.IsActive != nil {
		q.IsActive = *p.IsActive
	}
}
