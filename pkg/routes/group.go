package routes

import "net/http"

// Group collects routes under a common prefix. Children extend the prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds every route in groups to mux and returns the registered
// patterns in declaration order. ServeMux panics on conflicting patterns.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var patterns []string
	for _, g := range groups {
		patterns = g.register(mux, "", patterns)
	}
	return patterns
}

func (g Group) register(mux *http.ServeMux, parent string, patterns []string) []string {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		p := r.pattern(prefix)
		mux.HandleFunc(p, r.Handler)
		patterns = append(patterns, p)
	}
	for _, child := range g.Children {
		patterns = child.register(mux, prefix, patterns)
	}
	return patterns
}
