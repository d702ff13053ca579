package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "sk-test" {
			t.Errorf("Authorization = %q, want sk-test", got)
		}
		var req struct {
			Query   string `json:"query"`
			Summary bool   `json:"summary"`
			Count   int    `json:"count"`
			Page    int    `json:"page"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "solar capacity" || !req.Summary || req.Count != 5 || req.Page != 1 {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"webPages": {"value": [
			{"url": "http://a", "name": "A", "summary": "about a"},
			{"url": "http://b", "snippet": "about b"}
		]}}}`))
	}))
	defer srv.Close()

	ws := NewWebSearch(srv.URL, "sk-test")
	results, err := ws.Search(context.Background(), "solar capacity", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0]["url"] != "http://a" || results[0]["summary"] != "about a" {
		t.Errorf("first result = %v", results[0])
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			ws := NewWebSearch(srv.URL, "sk-test")
			results, err := ws.Search(context.Background(), "q", 5)
			if err == nil {
				t.Fatal("expected an error")
			}
			if results != nil {
				t.Errorf("results = %v, want nil", results)
			}
		})
	}
}

func TestSearchEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"webPages": {"value": []}}}`))
	}))
	defer srv.Close()

	ws := NewWebSearch(srv.URL, "sk-test")
	results, err := ws.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}
