package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/verity/pkg/routes"
)

func named(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(name))
	}
}

func testGroups() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/detections",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: named("list")},
				{Method: "GET", Pattern: "/{id}", Handler: named("find")},
				{Method: "POST", Pattern: "", Handler: named("analyze")},
			},
			Children: []routes.Group{
				{
					Prefix: "/{id}",
					Routes: []routes.Route{
						{Method: "POST", Pattern: "/feedback", Handler: named("feedback")},
					},
				},
			},
		},
		{
			Prefix: "/reliability",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/weights", Handler: named("weights")},
			},
		},
	}
}

func TestRegisterPatterns(t *testing.T) {
	got := routes.Register(http.NewServeMux(), testGroups()...)
	want := []string{
		"GET /detections",
		"GET /detections/{id}",
		"POST /detections",
		"POST /detections/{id}/feedback",
		"GET /reliability/weights",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("patterns mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterDispatch(t *testing.T) {
	mux := http.NewServeMux()
	routes.Register(mux, testGroups()...)

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"GET", "/detections", http.StatusOK, "list"},
		{"POST", "/detections", http.StatusOK, "analyze"},
		{"GET", "/detections/abc", http.StatusOK, "find"},
		{"POST", "/detections/abc/feedback", http.StatusOK, "feedback"},
		{"GET", "/reliability/weights", http.StatusOK, "weights"},
		{"DELETE", "/detections/abc", http.StatusMethodNotAllowed, ""},
		{"GET", "/reliability", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body: got %s, want %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRegisterEmptyPatternAtRoot(t *testing.T) {
	got := routes.Register(http.NewServeMux(), routes.Group{
		Routes: []routes.Route{{Method: "GET", Handler: named("root")}},
	})
	if diff := cmp.Diff([]string{"GET /"}, got); diff != "" {
		t.Errorf("patterns mismatch (-want +got):\n%s", diff)
	}
}
