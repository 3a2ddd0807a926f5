package data

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidScene is returned when a scene has geometry the world cannot build.
var ErrInvalidScene = errors.New("invalid scene")

// PlatformInfo describes one static platform in display units. The JSON
// form is sent verbatim to every viewer on connect.
type PlatformInfo struct {
	X     float64 `yaml:"x" json:"x"`
	Y     float64 `yaml:"y" json:"y"`
	W     float64 `yaml:"w" json:"w"`
	H     float64 `yaml:"h" json:"h"`
	Scale float64 `yaml:"scale" json:"scale"`
}

// StarDef is the one dynamic body, in display units.
type StarDef struct {
	X             float64 `yaml:"x"`
	Y             float64 `yaml:"y"`
	Radius        float64 `yaml:"radius"`
	Density       float64 `yaml:"density"`
	Friction      float64 `yaml:"friction"`
	Restitution   float64 `yaml:"restitution"`
	FixedRotation bool    `yaml:"fixed_rotation"`
}

// Scene is the fixed world layout.
type Scene struct {
	Platforms        []PlatformInfo `yaml:"platforms"`
	PlatformFriction float64        `yaml:"platform_friction"`
	Star             StarDef        `yaml:"star"`
}

// DefaultScene returns the built-in layout: four platforms and the star.
func DefaultScene() Scene {
	return Scene{
		Platforms: []PlatformInfo{
			{X: 400, Y: 568, W: 400, H: 32, Scale: 2},
			{X: 600, Y: 400, W: 400, H: 32, Scale: 1},
			{X: 50, Y: 250, W: 400, H: 32, Scale: 1},
			{X: 750, Y: 220, W: 400, H: 32, Scale: 1},
		},
		PlatformFriction: 3,
		Star: StarDef{
			X:             300,
			Y:             100,
			Radius:        10,
			Density:       1,
			Friction:      3,
			Restitution:   1,
			FixedRotation: true,
		},
	}
}

// LoadScene loads a scene YAML file. Keys the file omits keep their
// DefaultScene values; a file that lists platforms replaces all of them.
func LoadScene(path string) (Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, fmt.Errorf("read scene: %w", err)
	}
	sc := DefaultScene()
	sc.Platforms = nil
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return Scene{}, fmt.Errorf("parse scene: %w", err)
	}
	if sc.Platforms == nil {
		sc.Platforms = DefaultScene().Platforms
	}
	if err := sc.Validate(); err != nil {
		return Scene{}, err
	}
	return sc, nil
}

// Validate checks every dimension the world converts into a shape.
func (s Scene) Validate() error {
	for i, p := range s.Platforms {
		if p.W <= 0 || p.H <= 0 || p.Scale <= 0 {
			return fmt.Errorf("%w: platform %d has size %vx%v scale %v", ErrInvalidScene, i, p.W, p.H, p.Scale)
		}
	}
	if s.Star.Radius <= 0 {
		return fmt.Errorf("%w: star radius %v", ErrInvalidScene, s.Star.Radius)
	}
	if s.Star.Density < 0 {
		return fmt.Errorf("%w: star density %v", ErrInvalidScene, s.Star.Density)
	}
	return nil
}

// PlatformsCopy returns the platform list detached from the scene, so the
// caller may hand it out without exposing the original backing array.
func (s Scene) PlatformsCopy() []PlatformInfo {
	out := make([]PlatformInfo, len(s.Platforms))
	copy(out, s.Platforms)
	return out
}

// Count returns the number of platforms.
func (s Scene) Count() int {
	return len(s.Platforms)
}
