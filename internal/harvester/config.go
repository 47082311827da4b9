package harvester

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidConfig = errors.New("invalid harvester config")

// Config is the per-source harvesting configuration stored with each source.
type Config struct {
	ItemSelector    string    `json:"itemSelector"`
	ItemRelations   Relations `json:"itemRelations"`
	ContentSelector string    `json:"contentSelector"`
}

// Relations holds the chain expressions evaluated against each item root.
type Relations struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func ParseConfig(raw []byte) (Config, error) {
	var cfg Config
	if len(raw) == 0 {
		return cfg, fmt.Errorf("%w: empty config", ErrInvalidConfig)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.ItemSelector) == "" {
		missing = append(missing, "itemSelector")
	}
	if strings.TrimSpace(c.ItemRelations.Title) == "" {
		missing = append(missing, "itemRelations.title")
	}
	if strings.TrimSpace(c.ItemRelations.URL) == "" {
		missing = append(missing, "itemRelations.url")
	}
	if strings.TrimSpace(c.ContentSelector) == "" {
		missing = append(missing, "contentSelector")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}
