// Package routes declares HTTP endpoints as nested prefix groups and
// registers them on a ServeMux using method-qualified patterns.
package routes

import "net/http"

// Route binds an HTTP method and a path relative to its group to a handler.
// An empty Pattern addresses the group prefix itself.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

func (r Route) pattern(prefix string) string {
	path := prefix + r.Pattern
	if path == "" {
		path = "/"
	}
	if r.Method == "" {
		return path
	}
	return r.Method + " " + path
}
