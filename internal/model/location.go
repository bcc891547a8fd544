package model

import (
	"fmt"
	"strings"
	"time"
)

// Coordinates is a WGS84 point in decimal degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks the latitude and longitude ranges. prefix is prepended to
// the field names so nested coordinates report their full path.
func (c Coordinates) Validate(prefix string) []FieldError {
	var errors []FieldError
	if c.Lat < -90 || c.Lat > 90 {
		errors = append(errors, FieldError{Field: prefix + "lat", Message: "lat must be between -90 and 90"})
	}
	if c.Lng < -180 || c.Lng > 180 {
		errors = append(errors, FieldError{Field: prefix + "lng", Message: "lng must be between -180 and 180"})
	}
	return errors
}

// YandexMapsLink returns a map link centred on the point
func (c Coordinates) YandexMapsLink() string {
	return fmt.Sprintf("https://yandex.ru/maps/?pt=%g,%g&z=18", c.Lng, c.Lat)
}

// Media holds attached photo and video URLs
type Media struct {
	Photos []string `json:"photos,omitempty"`
	Videos []string `json:"videos,omitempty"`
}

// Location is a point of interest that can become a quest checkpoint
type Location struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Coordinates    Coordinates `json:"coordinates"`
	City           string      `json:"city"`
	District       string      `json:"district,omitempty"`
	YandexMapsLink string      `json:"yandex_maps_link,omitempty"`
	Description    string      `json:"description,omitempty"`
	Media          *Media      `json:"media,omitempty"`
	Questions      []Question  `json:"questions,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// FirstQuestion returns the question asked at this checkpoint
func (l *Location) FirstQuestion() (*Question, bool) {
	if len(l.Questions) == 0 {
		return nil, false
	}
	q := l.Questions[0]
	return &q, true
}

// PublicLocation is a location without question answers
type PublicLocation struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Coordinates    Coordinates `json:"coordinates"`
	City           string      `json:"city"`
	District       string      `json:"district,omitempty"`
	YandexMapsLink string      `json:"yandex_maps_link,omitempty"`
	Description    string      `json:"description,omitempty"`
	Media          *Media      `json:"media,omitempty"`
}

// ToPublic strips the embedded questions
func (l *Location) ToPublic() PublicLocation {
	return PublicLocation{
		ID:             l.ID,
		Name:           l.Name,
		Coordinates:    l.Coordinates,
		City:           l.City,
		District:       l.District,
		YandexMapsLink: l.YandexMapsLink,
		Description:    l.Description,
		Media:          l.Media,
	}
}

// LocationRequest creates or replaces a library location
type LocationRequest struct {
	Name           string      `json:"name"`
	Coordinates    Coordinates `json:"coordinates"`
	City           string      `json:"city"`
	District       string      `json:"district,omitempty"`
	YandexMapsLink string      `json:"yandex_maps_link,omitempty"`
	Description    string      `json:"description,omitempty"`
	Media          *Media      `json:"media,omitempty"`
}

// Validate validates the location form
func (r *LocationRequest) Validate() []FieldError {
	var errors []FieldError
	if strings.TrimSpace(r.Name) == "" {
		errors = append(errors, FieldError{Field: "name", Message: "name is required"})
	}
	if strings.TrimSpace(r.City) == "" {
		errors = append(errors, FieldError{Field: "city", Message: "city is required"})
	}
	errors = append(errors, r.Coordinates.Validate("coordinates.")...)
	return errors
}

// Apply copies the form onto a location, deriving the map link when absent
func (r *LocationRequest) Apply(l *Location) {
	l.Name = strings.TrimSpace(r.Name)
	l.Coordinates = r.Coordinates
	l.City = strings.TrimSpace(r.City)
	l.District = strings.TrimSpace(r.District)
	l.Description = r.Description
	l.Media = r.Media
	l.YandexMapsLink = r.YandexMapsLink
	if l.YandexMapsLink == "" {
		l.YandexMapsLink = r.Coordinates.YandexMapsLink()
	}
}

// District is a part of a city that quests can be filtered by
type District struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	CityID      string      `json:"city_id"`
	Coordinates Coordinates `json:"coordinates"`
	IsActive    bool        `json:"is_active"`
}

// City groups districts and quests
type City struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	IsActive    bool        `json:"is_active"`
	Districts   []District  `json:"districts"`
	CreatedAt   time.Time   `json:"created_at"`
}

// CityRequest creates or replaces a city
type CityRequest struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	IsActive    *bool       `json:"is_active,omitempty"`
}

// Validate validates the city form
func (r *CityRequest) Validate() []FieldError {
	var errors []FieldError
	if strings.TrimSpace(r.Name) == "" {
		errors = append(errors, FieldError{Field: "name", Message: "name is required"})
	}
	errors = append(errors, r.Coordinates.Validate("coordinates.")...)
	return errors
}

// DistrictRequest adds a district to a city
type DistrictRequest struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	IsActive    *bool       `json:"is_active,omitempty"`
}

// Validate validates the district form
func (r *DistrictRequest) Validate() []FieldError {
	var errors []FieldError
	if strings.TrimSpace(r.Name) == "" {
		errors = append(errors, FieldError{Field: "name", Message: "name is required"})
	}
	errors = append(errors, r.Coordinates.Validate("coordinates.")...)
	return errors
}
