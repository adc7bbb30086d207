package builds

import "fmt"

// BuildType is the closed set of build-order categories served by the API.
type BuildType string

const (
	FeudalRush  BuildType = "feudal_rush"
	FastCastle  BuildType = "fast_castle"
	DarkAgeRush BuildType = "dark_age_rush"
	WaterMaps   BuildType = "water_maps"
)

// BuildTypes lists every known build type in a fixed order.
func BuildTypes() []BuildType {
	return []BuildType{FeudalRush, FastCastle, DarkAgeRush, WaterMaps}
}

// ParseBuildType validates a raw value from the query string or the scraper.
func ParseBuildType(s string) (BuildType, error) {
	switch BuildType(s) {
	case FeudalRush, FastCastle, DarkAgeRush, WaterMaps:
		return BuildType(s), nil
	}
	return "", &ValidationError{Field: "build_type", Reason: fmt.Sprintf("unknown build type %q", s)}
}

// Difficulty is the closed set of difficulty ratings.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Difficulties lists every known difficulty in a fixed order.
func Difficulties() []Difficulty {
	return []Difficulty{Beginner, Intermediate, Advanced}
}

// ParseDifficulty validates a raw value from the query string or the scraper.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case Beginner, Intermediate, Advanced:
		return Difficulty(s), nil
	}
	return "", &ValidationError{Field: "difficulty", Reason: fmt.Sprintf("unknown difficulty %q", s)}
}

// Build is one normalized strategy guide. Records are created in bulk by a
// refresh and are immutable afterwards; the next refresh replaces them
// wholesale.
type Build struct {
	Name        string     `json:"name"`
	Difficulty  Difficulty `json:"difficulty"`
	Description string     `json:"description"`
	BuildType   BuildType  `json:"build_type"`

	// Age-up targets in seconds. Nil means the age is not part of this
	// build type (a feudal rush never reaches Imperial on plan).
	FeudalAgeTime   *int `json:"feudal_age_time,omitempty"`
	CastleAgeTime   *int `json:"castle_age_time,omitempty"`
	ImperialAgeTime *int `json:"imperial_age_time,omitempty"`
}

// Key returns the natural key used for de-duplication. The source pages
// carry no stable IDs, so (name, build_type) is the closest thing to one.
func (b Build) Key() string {
	return b.Name + "|" + string(b.BuildType)
}
