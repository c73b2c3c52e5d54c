package sources

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// Load reads the ordered feed source list from a YAML file. An empty or
// missing list is an error: without sources there is nothing to aggregate.
func Load(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("no feed sources defined in %s", path)
	}

	for i, s := range file.Sources {
		if err := validate(s); err != nil {
			return nil, fmt.Errorf("invalid source #%d: %w", i+1, err)
		}
	}

	return file.Sources, nil
}

func validate(s Source) error {
	if s.URL == "" {
		return fmt.Errorf("url is required")
	}
	if s.Author == "" {
		return fmt.Errorf("author is required")
	}

	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", s.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be http or https", s.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", s.URL)
	}

	return nil
}
