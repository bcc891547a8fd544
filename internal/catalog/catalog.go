// Package catalog holds the default game content: cities, library
// locations with their questions, quests, legal agreements and the question
// template bank. The content ships embedded in the binary and can be
// replaced by a YAML file on disk.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/forgo/cityquest/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var embedded []byte

// Catalog is the parsed seed file
type Catalog struct {
	Cities     []City              `yaml:"cities"`
	Locations  []Location          `yaml:"locations"`
	Quests     []Quest             `yaml:"quests"`
	Agreements []Agreement         `yaml:"agreements"`
	Templates  map[string][]string `yaml:"question_templates"`
}

// City is a seeded city with its districts
type City struct {
	Name      string     `yaml:"name"`
	Lat       float64    `yaml:"lat"`
	Lng       float64    `yaml:"lng"`
	Districts []District `yaml:"districts"`
}

// District is a seeded district
type District struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
}

// Location is a seeded library location. Key is referenced by quests.
type Location struct {
	Key         string     `yaml:"key"`
	Name        string     `yaml:"name"`
	City        string     `yaml:"city"`
	District    string     `yaml:"district"`
	Lat         float64    `yaml:"lat"`
	Lng         float64    `yaml:"lng"`
	Description string     `yaml:"description"`
	Questions   []Question `yaml:"questions"`
}

// Question is a seeded question
type Question struct {
	Text         string   `yaml:"text"`
	Type         string   `yaml:"type"`
	Options      []string `yaml:"options"`
	CorrectIndex *int     `yaml:"correct_index"`
	CorrectText  string   `yaml:"correct_text"`
	Difficulty   string   `yaml:"difficulty"`
}

// Quest is a seeded quest whose locations are given by key
type Quest struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	City        string   `yaml:"city"`
	District    string   `yaml:"district"`
	Price       int      `yaml:"price"`
	Start       string   `yaml:"start"`
	Final       string   `yaml:"final"`
	Route       []string `yaml:"route"`
	Conditions  string   `yaml:"conditions"`
	Active      bool     `yaml:"active"`
}

// Agreement is a seeded legal document
type Agreement struct {
	Type     string `yaml:"type"`
	Title    string `yaml:"title"`
	Content  string `yaml:"content"`
	Required bool   `yaml:"required"`
	Version  string `yaml:"version"`
}

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	return Parse(embedded)
}

// Load reads the catalog at path, or the embedded one when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the cross references the seeder relies on
func (c *Catalog) Validate() error {
	var errs []error

	keys := make(map[string]*Location, len(c.Locations))
	for i := range c.Locations {
		loc := &c.Locations[i]
		if loc.Key == "" {
			errs = append(errs, fmt.Errorf("location %q has no key", loc.Name))
			continue
		}
		if _, dup := keys[loc.Key]; dup {
			errs = append(errs, fmt.Errorf("location key %q is used twice", loc.Key))
		}
		keys[loc.Key] = loc
		for j := range loc.Questions {
			req := loc.Questions[j].Request()
			if fields := req.Validate(); len(fields) > 0 {
				errs = append(errs, fmt.Errorf("location %s question %d: %s", loc.Key, j+1, fields[0].Message))
			}
		}
	}

	for _, q := range c.Quests {
		for _, key := range []string{q.Start, q.Final} {
			if _, ok := keys[key]; !ok {
				errs = append(errs, fmt.Errorf("quest %q references unknown location %q", q.Title, key))
			}
		}
		if n := len(q.Route); n < model.MinQuestLocations || n > model.MaxQuestLocations {
			errs = append(errs, fmt.Errorf("quest %q has %d checkpoints", q.Title, n))
		}
		for _, key := range q.Route {
			loc, ok := keys[key]
			if !ok {
				errs = append(errs, fmt.Errorf("quest %q references unknown location %q", q.Title, key))
				continue
			}
			if len(loc.Questions) == 0 {
				errs = append(errs, fmt.Errorf("quest %q checkpoint %q has no question", q.Title, key))
			}
		}
	}

	for _, a := range c.Agreements {
		if !model.AgreementType(a.Type).IsValid() {
			errs = append(errs, fmt.Errorf("unknown agreement type %q", a.Type))
		}
	}

	for level, bank := range c.Templates {
		if model.Difficulty(level).Normalize() != model.Difficulty(level) {
			errs = append(errs, fmt.Errorf("unknown template difficulty %q", level))
		}
		for _, t := range bank {
			if !strings.Contains(t, "{location}") {
				errs = append(errs, fmt.Errorf("template %q has no {location} placeholder", t))
			}
		}
	}

	return errors.Join(errs...)
}

// Location returns the seeded location with the given key
func (c *Catalog) Location(key string) (*Location, bool) {
	for i := range c.Locations {
		if c.Locations[i].Key == key {
			return &c.Locations[i], true
		}
	}
	return nil, false
}

// QuestionTemplates returns the template bank keyed by difficulty
func (c *Catalog) QuestionTemplates() map[model.Difficulty][]string {
	out := make(map[model.Difficulty][]string, len(c.Templates))
	for level, bank := range c.Templates {
		out[model.Difficulty(level)] = append([]string(nil), bank...)
	}
	return out
}

// Request converts the seed entry into the admin form
func (c *City) Request() *model.CityRequest {
	return &model.CityRequest{
		Name:        c.Name,
		Coordinates: model.Coordinates{Lat: c.Lat, Lng: c.Lng},
	}
}

// Request converts the seed entry into the admin form
func (d *District) Request() *model.DistrictRequest {
	return &model.DistrictRequest{
		Name:        d.Name,
		Coordinates: model.Coordinates{Lat: d.Lat, Lng: d.Lng},
	}
}

// Request converts the seed entry into the admin form
func (l *Location) Request() *model.LocationRequest {
	return &model.LocationRequest{
		Name:        l.Name,
		Coordinates: model.Coordinates{Lat: l.Lat, Lng: l.Lng},
		City:        l.City,
		District:    l.District,
		Description: l.Description,
	}
}

// Request converts the seed entry into the admin form
func (q *Question) Request() *model.QuestionRequest {
	return &model.QuestionRequest{
		Text:         q.Text,
		Type:         model.QuestionType(q.Type),
		Options:      q.Options,
		CorrectIndex: q.CorrectIndex,
		CorrectText:  q.CorrectText,
		Difficulty:   model.Difficulty(q.Difficulty),
	}
}

// Request converts the seed entry into the admin form. ids maps location
// keys to the stored location IDs.
func (q *Quest) Request(ids map[string]string) *model.QuestRequest {
	route := make([]string, 0, len(q.Route))
	for _, key := range q.Route {
		route = append(route, ids[key])
	}
	active := q.Active
	return &model.QuestRequest{
		Title:           q.Title,
		Description:     q.Description,
		City:            q.City,
		District:        q.District,
		Price:           q.Price,
		StartLocationID: ids[q.Start],
		FinalLocationID: ids[q.Final],
		LocationIDs:     route,
		Conditions:      q.Conditions,
		IsActive:        &active,
	}
}

// Request converts the seed entry into the admin form
func (a *Agreement) Request() *model.AgreementRequest {
	return &model.AgreementRequest{
		Type:       model.AgreementType(a.Type),
		Title:      a.Title,
		Content:    a.Content,
		IsRequired: a.Required,
		Version:    a.Version,
	}
}
