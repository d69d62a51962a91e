package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const catalogJSON = `{
  "problems": [
    {"id": 1, "title": "Two Sum", "url": "https://leetcode.com/problems/two-sum/", "topics": ["Array", "Hash Table"], "difficulty": "Easy", "hint": "Use a map"},
    {"id": 2, "title": "Valid Parentheses", "url": "https://leetcode.com/problems/valid-parentheses/", "topics": ["Stack"], "difficulty": "Easy"}
  ]
}`

func TestLoaderLoadFromHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogJSON))
	}))
	defer server.Close()

	problems := NewLoader(server.URL).Load(context.Background())
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %d", len(problems))
	}
	for _, p := range problems {
		if !p.IsStandard {
			t.Fatalf("catalog problem %d not marked standard", p.ID)
		}
	}
	if problems[0].Title != "Two Sum" || problems[0].ID != 1 {
		t.Fatalf("unexpected first problem: %+v", problems[0])
	}
}

func TestLoaderLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problems.json")
	if err := os.WriteFile(path, []byte(catalogJSON), 0o644); err != nil {
		t.Fatalf("write catalog file failed: %v", err)
	}

	problems := NewLoader(path).Load(context.Background())
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %d", len(problems))
	}
}

func TestLoaderDegradesToEmptyCatalog(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"problems": "not an array"`))
			},
		},
		{
			name: "missing problems field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"other": []}`))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			problems := NewLoader(server.URL).Load(context.Background())
			if len(problems) != 0 {
				t.Fatalf("expected empty catalog, got %d problems", len(problems))
			}
		})
	}
}

func TestLoaderUnreachableSource(t *testing.T) {
	problems := NewLoader("http://127.0.0.1:1/problems.json").Load(context.Background())
	if len(problems) != 0 {
		t.Fatalf("expected empty catalog, got %d problems", len(problems))
	}
}
