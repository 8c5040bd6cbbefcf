package providers

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// decodeStrict decodes a raw config block into a plugin's typed config
// struct, rejecting unknown fields, then validates the struct tags. The
// target must be pre-populated with the plugin's defaults; decoded fields
// overwrite them.
func decodeStrict(raw map[string]interface{}, out interface{}) error {
	if len(raw) > 0 {
		buf, err := yaml.Marshal(raw)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(buf))
		dec.KnownFields(true)
		if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode config: %w", err)
		}
	}

	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}
