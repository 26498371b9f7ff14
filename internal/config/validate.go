package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalid is returned when a config fails validation.
var ErrInvalid = errors.New("invalid config")

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("config.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// Validate checks the config against the embedded schema and the invariants
// the schema cannot express.
func (c *Config) Validate() error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	// The schema sees the config the way a JSON document would.
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if err := c.Terrain.Layout().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !(c.Terrain.TextureSize > 0) {
		return fmt.Errorf("%w: texture size must be positive, got %v", ErrInvalid, c.Terrain.TextureSize)
	}
	if _, err := c.Export.EncoderLevel(); err != nil {
		return err
	}
	return nil
}

// EncoderLevel returns the zstd level named by Compression.
func (e ExportConfig) EncoderLevel() (zstd.EncoderLevel, error) {
	ok, level := zstd.EncoderLevelFromString(strings.ToLower(e.Compression))
	if !ok {
		return 0, fmt.Errorf("%w: unknown compression %q", ErrInvalid, e.Compression)
	}
	return level, nil
}
