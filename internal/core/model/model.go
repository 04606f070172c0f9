// Package model defines core domain types shared across the service.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Point is a 2D coordinate, X = longitude and Y = latitude.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// String representation in lon,lat order
func (p Point) String() string {
	return fmt.Sprintf("%.7f,%.7f", p.X, p.Y)
}

// LineGeometry is one road segment chain. Fewer than two points is not a line.
type LineGeometry []Point

var ErrUnknownCategory = errors.New("unknown facility category")

type Category int

const (
	CategoryFire Category = iota + 1
	CategoryHealth
	CategoryRelief
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{CategoryFire, CategoryHealth, CategoryRelief}
}

func (c Category) String() string {
	switch c {
	case CategoryFire:
		return "fire"
	case CategoryHealth:
		return "health"
	case CategoryRelief:
		return "relief"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Label is the human readable facility kind shown next to results.
func (c Category) Label() string {
	switch c {
	case CategoryFire:
		return "Fire Station"
	case CategoryHealth:
		return "Health Facility"
	case CategoryRelief:
		return "Red Cross"
	default:
		return ""
	}
}

// Color is the overlay colour used when drawing the route and facility marker.
func (c Category) Color() string {
	switch c {
	case CategoryFire:
		return "red"
	case CategoryHealth:
		return "blue"
	case CategoryRelief:
		return "green"
	default:
		return "gray"
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFire, CategoryHealth, CategoryRelief:
		return true
	default:
		return false
	}
}

// ParseCategory accepts canonical names and the form labels ("Fire Station", "Red Cross", ...).
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	switch norm {
	case "fire", "fire station", "firestation":
		return CategoryFire, nil
	case "health", "health facility", "healthfacility", "hospital":
		return CategoryHealth, nil
	case "relief", "relief station", "reliefstation", "red cross", "redcross":
		return CategoryRelief, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

type FacilityRecord struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Location Point    `json:"location"`
	Label    string   `json:"label"`
}

type RouteStatus string

const (
	StatusOK         RouteStatus = "ok"
	StatusNoFacility RouteStatus = "no_facility"
	StatusNoPath     RouteStatus = "no_path"
)

// RouteResult is the outcome of one routing query. On failure Path is empty and
// Message explains why; a no_path result still carries the matched facility.
type RouteResult struct {
	Status           RouteStatus     `json:"status"`
	Message          string          `json:"message,omitempty"`
	Category         Category        `json:"category"`
	Incident         Point           `json:"incident"`
	Facility         *FacilityRecord `json:"facility,omitempty"`
	FacilityDistance float64         `json:"facility_distance"`
	Path             []Point         `json:"path,omitempty"`
	Weight           float64         `json:"weight"`
	LengthMeters     float64         `json:"length_m"`
}

func (r RouteResult) OK() bool { return r.Status == StatusOK }
