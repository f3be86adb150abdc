package config

import (
	"fmt"
	"os"

	"github.com/bilgisen/rtfire/internal/models"
	"gopkg.in/yaml.v3"
)

type sourcesFile struct {
	Sources []models.Source `yaml:"sources"`
}

// LoadSources reads the seed source list. A missing file yields no sources.
func LoadSources(path string) ([]models.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sources file: %w", err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing sources file: %w", err)
	}

	for i, s := range f.Sources {
		if s.URL == "" {
			return nil, fmt.Errorf("source %d has no url", i)
		}
		if s.ID == "" {
			f.Sources[i].ID = fmt.Sprintf("seed-%d", i+1)
		}
		if s.Name == "" {
			f.Sources[i].Name = s.URL
		}
	}
	return f.Sources, nil
}
