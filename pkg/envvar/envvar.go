// Package envvar applies environment variable overrides onto config fields.
// An empty variable name or an unset variable leaves the destination untouched,
// as does a value that fails to parse.
package envvar

import (
	"os"
	"strconv"
	"strings"
)

// Lookup returns the value of the named variable and whether it is set and non-empty.
func Lookup(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	v := os.Getenv(name)
	return v, v != ""
}

// String overwrites dst with the variable's value.
func String(name string, dst *string) {
	if v, ok := Lookup(name); ok {
		*dst = v
	}
}

// Int overwrites dst with the variable parsed as a base-10 integer.
func Int(name string, dst *int) {
	if v, ok := Lookup(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Float overwrites dst with the variable parsed as a float64.
func Float(name string, dst *float64) {
	if v, ok := Lookup(name); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// Bool overwrites dst with the variable parsed by strconv.ParseBool.
func Bool(name string, dst *bool) {
	if v, ok := Lookup(name); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// BoolPtr is Bool for optional fields where nil means "use the default".
func BoolPtr(name string, dst **bool) {
	if v, ok := Lookup(name); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = &b
		}
	}
}

// List overwrites dst with the comma-separated values of the variable.
// Blank entries are dropped.
func List(name string, dst *[]string) {
	v, ok := Lookup(name)
	if !ok {
		return
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	*dst = out
}
