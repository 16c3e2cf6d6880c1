package evidence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/verity/pkg/validation"
)

// ErrInvalidBundle indicates the bundle could not be decoded or failed validation.
var ErrInvalidBundle = errors.New("invalid evidence bundle")

// Format identifies a bundle encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the encoding from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Decode parses data into a bundle seeded with neutral defaults, validates it,
// and normalizes it. Unknown fields are ignored.
func Decode(data []byte, format Format) (Bundle, error) {
	b := New()

	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &b)
	default:
		if len(bytes.TrimSpace(data)) == 0 {
			break
		}
		err = json.Unmarshal(data, &b)
	}
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	if err := Validate(b); err != nil {
		return Bundle{}, err
	}

	b.Normalize()
	return b, nil
}

// Validate checks structural constraints that cannot be defaulted away.
func Validate(b Bundle) error {
	if err := validation.Struct(b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	return nil
}

// UnmarshalJSON decodes into a bundle seeded with neutral defaults so that
// bundles nested in request bodies receive the same defaults as Decode.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	type plain Bundle
	seeded := plain(New())
	if err := json.Unmarshal(data, &seeded); err != nil {
		return err
	}
	*b = Bundle(seeded)
	return nil
}
