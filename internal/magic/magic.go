// Package magic holds the one-click edit presets and pose hints offered
// next to free-text editing.
package magic

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultPresets []byte

// Edit is a preset edit instruction with a short display name.
type Edit struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
}

// Pose is a pose hint that can be merged into an edit instruction.
type Pose struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

// Catalog is the set of presets available to the front ends.
type Catalog struct {
	Edits []Edit `yaml:"magic_edits"`
	Poses []Pose `yaml:"poses"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultPresets)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded presets: %v", err))
	}
	return c
}

// Load reads a catalog from path. An empty path returns the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool)
	for _, e := range c.Edits {
		if e.ID == "" || e.Name == "" || strings.TrimSpace(e.Prompt) == "" {
			return fmt.Errorf("magic edit %q is missing id, name or prompt", e.ID)
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate magic edit id %q", e.ID)
		}
		seen[e.ID] = true
	}
	seen = make(map[string]bool)
	for _, p := range c.Poses {
		if p.ID == "" || p.Text == "" {
			return fmt.Errorf("pose %q is missing id or text", p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate pose id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// Edit returns the preset with the given id.
func (c *Catalog) Edit(id string) (Edit, bool) {
	for _, e := range c.Edits {
		if e.ID == id {
			return e, true
		}
	}
	return Edit{}, false
}

// Pose returns the pose hint with the given id.
func (c *Catalog) Pose(id string) (Pose, bool) {
	for _, p := range c.Poses {
		if p.ID == id {
			return p, true
		}
	}
	return Pose{}, false
}

// ApplyPose merges pose into instruction. If the instruction already contains
// one of the catalog's pose hints it is replaced, otherwise the hint is appended.
func (c *Catalog) ApplyPose(instruction string, pose Pose) string {
	updated := strings.TrimSpace(instruction)
	for _, existing := range c.Poses {
		if strings.Contains(updated, existing.Text) {
			return strings.Replace(updated, existing.Text, pose.Text, 1)
		}
	}
	if updated == "" {
		return pose.Text
	}
	return updated + " " + pose.Text
}
