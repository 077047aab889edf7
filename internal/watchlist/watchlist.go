// Package watchlist loads the people the worker reports on.
package watchlist

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultSchedule runs reports daily at 07:00.
const DefaultSchedule = "0 7 * * *"

// Person is one watched name and who receives its report.
type Person struct {
	Name       string   `yaml:"name"`
	Recipients []string `yaml:"recipients"`
	// Format overrides the file-level export format.
	Format string `yaml:"format,omitempty"`
}

// Watchlist is the worker's YAML configuration.
type Watchlist struct {
	Schedule string   `yaml:"schedule"`
	Format   string   `yaml:"format"`
	People   []Person `yaml:"people"`
}

// Load reads and validates the watchlist at path.
func Load(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("watchlist: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a watchlist document, applying defaults.
func Parse(data []byte) (*Watchlist, error) {
	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("watchlist: parse: %w", err)
	}

	wl.Schedule = strings.TrimSpace(wl.Schedule)
	if wl.Schedule == "" {
		wl.Schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(wl.Schedule); err != nil {
		return nil, fmt.Errorf("watchlist: schedule %q: %w", wl.Schedule, err)
	}

	wl.Format = strings.ToLower(strings.TrimSpace(wl.Format))
	if wl.Format == "" {
		wl.Format = "pdf"
	}
	if !validFormat(wl.Format) {
		return nil, fmt.Errorf("watchlist: format %q must be txt or pdf", wl.Format)
	}

	if len(wl.People) == 0 {
		return nil, errors.New("watchlist: no people listed")
	}
	for i := range wl.People {
		p := &wl.People[i]
		p.Name = strings.Join(strings.Fields(p.Name), " ")
		if p.Name == "" {
			return nil, fmt.Errorf("watchlist: person %d has no name", i+1)
		}
		p.Format = strings.ToLower(strings.TrimSpace(p.Format))
		if p.Format == "" {
			p.Format = wl.Format
		}
		if !validFormat(p.Format) {
			return nil, fmt.Errorf("watchlist: %s: format %q must be txt or pdf", p.Name, p.Format)
		}
	}
	return &wl, nil
}

func validFormat(f string) bool {
	return f == "txt" || f == "pdf"
}
