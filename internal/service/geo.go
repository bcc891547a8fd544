package service

import (
	"math"
	"time"

	"github.com/forgo/cityquest/internal/model"
)

// GeoService handles geographic calculations
type GeoService struct{}

// NewGeoService creates a new geo service
func NewGeoService() *GeoService {
	return &GeoService{}
}

// EarthRadiusM is the Earth's mean radius in meters
const EarthRadiusM = 6371e3

// HaversineMeters calculates the great-circle distance between two points in meters
func (s *GeoService) HaversineMeters(a, b model.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusM * c
}

// SpeedKmh converts a distance covered in elapsed time to km/h.
// Non-positive durations yield 0.
func (s *GeoService) SpeedKmh(distanceM float64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	hours := float64(elapsed.Milliseconds()) / 3_600_000
	if hours == 0 {
		return 0
	}
	return (distanceM / 1000) / hours
}

// IsWithinRadius checks if point is within radiusM meters of center (inclusive)
func (s *GeoService) IsWithinRadius(center, point model.Coordinates, radiusM float64) bool {
	return s.HaversineMeters(center, point) <= radiusM
}

// NearestCity returns the closest active city and its closest active district.
// Either result is nil when there is no candidate.
func (s *GeoService) NearestCity(point model.Coordinates, cities []model.City) (*model.City, *model.District) {
	var city *model.City
	best := math.Inf(1)
	for i := range cities {
		if !cities[i].IsActive {
			continue
		}
		if d := s.HaversineMeters(point, cities[i].Coordinates); d < best {
			best = d
			city = &cities[i]
		}
	}
	if city == nil {
		return nil, nil
	}

	var district *model.District
	best = math.Inf(1)
	for i := range city.Districts {
		if !city.Districts[i].IsActive {
			continue
		}
		if d := s.HaversineMeters(point, city.Districts[i].Coordinates); d < best {
			best = d
			district = &city.Districts[i]
		}
	}
	return city, district
}
