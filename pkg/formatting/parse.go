package formatting

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// ErrParseFailed is returned when no JSON value of the requested shape can
// be recovered from the payload.
var ErrParseFailed = errors.New("failed to parse response")

const maxEcho = 200

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Parse decodes data as JSON into T. Payloads that wrap the JSON in a
// markdown code fence, or surround a single object with prose, are unwrapped
// before a second attempt. The error echoes at most the first 200 bytes.
func Parse[T any](data []byte) (T, error) {
	var result T
	data = bytes.TrimSpace(data)

	if err := json.Unmarshal(data, &result); err == nil {
		return result, nil
	}

	for _, candidate := range candidates(data) {
		var retry T
		if err := json.Unmarshal(candidate, &retry); err == nil {
			return retry, nil
		}
	}

	echo := data
	if len(echo) > maxEcho {
		echo = echo[:maxEcho]
	}
	return result, fmt.Errorf("%w: %q", ErrParseFailed, echo)
}

func candidates(data []byte) [][]byte {
	var out [][]byte
	if m := fencePattern.FindSubmatch(data); m != nil {
		out = append(out, m[1])
	}
	start := bytes.IndexAny(data, "{[")
	end := bytes.LastIndexAny(data, "}]")
	if start >= 0 && end > start {
		out = append(out, data[start:end+1])
	}
	return out
}
