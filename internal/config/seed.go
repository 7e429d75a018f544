package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is reference data loaded by the seed command.
type Seed struct {
	Desks    []string      `yaml:"desks"`
	Holidays []SeedHoliday `yaml:"holidays"`
}

// SeedHoliday is one holiday entry; Date uses YYYY-MM-DD.
type SeedHoliday struct {
	Date string `yaml:"date"`
	Name string `yaml:"name"`
}

// LoadSeedFile decodes a YAML seed file. Unknown keys are rejected.
func LoadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var seed Seed
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return seed, nil
}
