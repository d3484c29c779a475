package corpus

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xaenox/intent-bot/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed intents.json
var defaultIntents []byte

var (
	ErrEmptyCorpus   = errors.New("corpus has no intents")
	ErrInvalidRecord = errors.New("invalid intent record")
)

// Load reads intents from path. JSON and YAML files are supported; an empty
// path loads the built-in corpus. The result is validated before it is
// returned.
func Load(path string) (models.Corpus, error) {
	if path == "" {
		return Parse(defaultIntents, ".json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intents file: %w", err)
	}

	return Parse(data, filepath.Ext(path))
}

// Default returns the built-in corpus.
func Default() models.Corpus {
	c, err := Parse(defaultIntents, ".json")
	if err != nil {
		panic(fmt.Sprintf("built-in corpus is invalid: %v", err))
	}
	return c
}

// Parse decodes and validates a corpus document. ext selects the decoder.
func Parse(data []byte, ext string) (models.Corpus, error) {
	var doc interface{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse intents yaml: %w", err)
		}
	case ".json", "":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse intents json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported intents file extension %q", ext)
	}

	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	// The schema has already checked the shape, so a JSON round trip
	// gives a typed corpus for both input formats.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize intents: %w", err)
	}

	var c models.Corpus
	if err := json.Unmarshal(normalized, &c); err != nil {
		return nil, fmt.Errorf("failed to decode intents: %w", err)
	}

	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the invariants of an already-decoded corpus.
func Validate(c models.Corpus) error {
	if len(c) == 0 {
		return ErrEmptyCorpus
	}

	for i, intent := range c {
		if strings.TrimSpace(intent.Tag) == "" {
			return fmt.Errorf("%w: record %d has no tag", ErrInvalidRecord, i)
		}
		if len(intent.Patterns) == 0 {
			return fmt.Errorf("%w: %q has no patterns", ErrInvalidRecord, intent.Tag)
		}
		if len(intent.Responses) == 0 {
			return fmt.Errorf("%w: %q has no responses", ErrInvalidRecord, intent.Tag)
		}
		for j, p := range intent.Patterns {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("%w: %q pattern %d is blank", ErrInvalidRecord, intent.Tag, j)
			}
		}
		for j, r := range intent.Responses {
			if strings.TrimSpace(r) == "" {
				return fmt.Errorf("%w: %q response %d is blank", ErrInvalidRecord, intent.Tag, j)
			}
		}
	}
	return nil
}
