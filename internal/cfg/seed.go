package cfg

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSeed reads the seed file. A missing file yields an empty seed.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Seed{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	return ParseSeed(data)
}

func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range seed.Sources {
		if seed.Sources[i].Lang == "" {
			seed.Sources[i].Lang = "en"
		}
	}

	if err := validateSeed(&seed); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}

	return &seed, nil
}

func validateSeed(seed *Seed) error {
	topicNames := make(map[string]bool, len(seed.Topics))
	for i, topic := range seed.Topics {
		name := strings.TrimSpace(topic.Name)
		if name == "" {
			return fmt.Errorf("topic at index %d has no name", i)
		}
		if topicNames[name] {
			return fmt.Errorf("duplicate topic name: %s", name)
		}
		topicNames[name] = true
	}

	urls := make(map[string]bool, len(seed.Sources))
	for i, source := range seed.Sources {
		if source.URL == "" {
			return fmt.Errorf("source at index %d has no url", i)
		}
		if urls[source.URL] {
			return fmt.Errorf("duplicate source url: %s", source.URL)
		}
		urls[source.URL] = true
		if source.Topic != "" && !topicNames[source.Topic] {
			return fmt.Errorf("source %s references unknown topic %q", source.URL, source.Topic)
		}
	}

	return nil
}
