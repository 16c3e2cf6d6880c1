package module_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/verity/pkg/module"
)

func echoPath(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(r.URL.Path))
}

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		prefix  string
		wantErr bool
	}{
		{"/api", false},
		{"/v1", false},
		{"", true},
		{"/", true},
		{"api", true},
		{"/api/v1", true},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			err := module.ValidatePrefix(tt.prefix)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePrefix(%q) error = %v, wantErr %v", tt.prefix, err, tt.wantErr)
			}
		})
	}
}

func TestNewInvalidPrefixPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nested prefix")
		}
	}()
	module.New("/api/v1", http.NewServeMux())
}

func TestServeStripsPrefix(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /detections/{id}", echoPath)
	mux.HandleFunc("GET /{$}", echoPath)

	m := module.New("/api", mux)

	tests := []struct {
		path string
		want string
	}{
		{"/api/detections/42", "/detections/42"},
		{"/api", "/"},
		{"/api/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			m.Serve(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", rec.Code)
			}
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("inner path: got %s, want %s", got, tt.want)
			}
			if req.URL.Path != tt.path {
				t.Errorf("original request mutated: %s", req.URL.Path)
			}
		})
	}
}

func TestModuleMiddlewareComposedOnce(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {})

	m := module.New("/api", mux)

	var builds, calls int
	m.Use(func(next http.Handler) http.Handler {
		builds++
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			next.ServeHTTP(w, r)
		})
	})

	for range 3 {
		m.Serve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api", nil))
	}

	if builds != 1 {
		t.Errorf("middleware built %d times, want 1", builds)
	}
	if calls != 3 {
		t.Errorf("middleware called %d times, want 3", calls)
	}
}

func TestRouter(t *testing.T) {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /detections", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("api"))
	})

	router := module.NewRouter()
	router.Mount(module.New("/api", apiMux))
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	router.Handle("GET /metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("metrics"))
	}))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"module", "/api/detections", http.StatusOK, "api"},
		{"module trailing slash", "/api/detections/", http.StatusOK, "api"},
		{"native func", "/healthz", http.StatusOK, "ok"},
		{"native handler", "/metrics", http.StatusOK, "metrics"},
		{"prefix lookalike", "/apix/detections", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body: got %s, want %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
