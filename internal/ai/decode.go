package ai

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode copies a parsed JSON value into out, matching fields by their json
// tags. Numeric strings are accepted for number fields.
func Decode(value any, out any, hooks ...mapstructure.DecodeHookFunc) error {
	cfg := &mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	if len(hooks) > 0 {
		cfg.DecodeHook = mapstructure.ComposeDecodeHookFunc(hooks...)
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(value); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return nil
}
