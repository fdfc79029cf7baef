package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultLabels is the classifier vocabulary in network output order.
var DefaultLabels = []string{
	"FreshApple", "FreshBanana", "FreshCarrot", "FreshCucumber", "FreshMango",
	"FreshOrange", "FreshPotato", "FreshStrawberry", "FreshTomato",
	"RottenApple", "RottenBanana", "RottenCarrot", "RottenCucumber", "RottenMango",
	"RottenOrange", "RottenPotato", "RottenStrawberry", "RottenTomato",
}

type labelsFile struct {
	Labels []string `yaml:"labels"`
}

// LoadLabels reads the class vocabulary from a YAML file of the form
// "labels: [...]". A missing file yields DefaultLabels.
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return append([]string(nil), DefaultLabels...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}

	var f labelsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse labels file %s: %w", path, err)
	}
	if len(f.Labels) == 0 {
		return nil, fmt.Errorf("labels file %s defines no labels", path)
	}

	seen := make(map[string]bool, len(f.Labels))
	for _, l := range f.Labels {
		if l == "" {
			return nil, fmt.Errorf("labels file %s contains an empty label", path)
		}
		if seen[l] {
			return nil, fmt.Errorf("labels file %s repeats label %q", path, l)
		}
		seen[l] = true
	}
	return f.Labels, nil
}
