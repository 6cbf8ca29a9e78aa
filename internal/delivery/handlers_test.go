package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"bookrater/internal/gemini"
	"bookrater/internal/search"
	"bookrater/internal/settings"
)

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Generate(context.Context, gemini.Credentials, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func newTestServer(t *testing.T, gen search.Generator) *Server {
	t.Helper()
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("open settings: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.SetAPIKey("test-key-1234"); err != nil {
		t.Fatalf("seed key: %v", err)
	}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return &Server{Log: log, Search: search.NewService(gen), Settings: store}
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubGenerator{text: "{}"})
	w := doJSON(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	reply := `{"title":"快思慢想","ratings":[{"platform":"Amazon Books","rating":4,"maxRating":5,"summary":"好評"}]}`
	s := newTestServer(t, &stubGenerator{text: reply})

	w := doJSON(t, s, http.MethodPost, "/search", `{"title":"快思慢想"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Title        string            `json:"title"`
		AverageScore string            `json:"averageScore"`
		RatingLinks  map[string]string `json:"ratingLinks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.AverageScore != "8.0" {
		t.Errorf("averageScore = %q", resp.AverageScore)
	}
	if resp.RatingLinks["Amazon Books"] == "" {
		t.Error("expected a rating link for Amazon Books")
	}
}

func TestSearchSanitizesModelText(t *testing.T) {
	reply := `{"title":"<script>alert(1)</script>快思慢想","author":"康納曼","ratings":[]}`
	s := newTestServer(t, &stubGenerator{text: reply})

	w := doJSON(t, s, http.MethodPost, "/search", `{"title":"快思慢想"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<script>") {
		t.Error("script tag survived sanitization")
	}
}

func TestSearchNoRatingsGetsPurchaseLinks(t *testing.T) {
	reply := `{"title":"冷門之書","author":"無名氏","ratings":[]}`
	s := newTestServer(t, &stubGenerator{text: reply})

	w := doJSON(t, s, http.MethodPost, "/search", `{"title":"冷門之書"}`)
	var resp struct {
		NoRatings     bool `json:"noRatings"`
		PurchaseLinks []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"purchaseLinks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !resp.NoRatings {
		t.Error("expected a no-ratings record")
	}
	if len(resp.PurchaseLinks) == 0 {
		t.Error("expected purchase links")
	}
}

func TestSearchErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		gen      search.Generator
		body     string
		expected int
	}{
		{"bad json body", &stubGenerator{text: "{}"}, "{", http.StatusBadRequest},
		{"empty query", &stubGenerator{text: "{}"}, `{"title":""}`, http.StatusBadRequest},
		{"no api key", &stubGenerator{err: gemini.ErrNoAPIKey}, `{"title":"x"}`, http.StatusUnauthorized},
		{"no data", &stubGenerator{text: "{}"}, `{"title":"x"}`, http.StatusNotFound},
		{"upstream", &stubGenerator{err: &gemini.TransportError{Status: 500}}, `{"title":"x"}`, http.StatusBadGateway},
		{"truncated", &stubGenerator{err: &gemini.TruncatedError{Text: "{"}}, `{"title":"x"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.gen)
			w := doJSON(t, s, http.MethodPost, "/search", tt.body)
			if w.Code != tt.expected {
				t.Errorf("status = %d, expected %d (body %s)", w.Code, tt.expected, w.Body.String())
			}
		})
	}
}

func TestSettingsRedactsKey(t *testing.T) {
	s := newTestServer(t, &stubGenerator{text: "{}"})
	w := doJSON(t, s, http.MethodGet, "/settings", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "test-key-1234") {
		t.Error("raw API key leaked in settings response")
	}
	var resp struct {
		APIKey    string `json:"apiKey"`
		HasAPIKey bool   `json:"hasApiKey"`
		Model     string `json:"model"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !resp.HasAPIKey {
		t.Error("hasApiKey should be true")
	}
	if !strings.HasSuffix(resp.APIKey, "1234") || !strings.Contains(resp.APIKey, "*") {
		t.Errorf("apiKey = %q, expected redacted form", resp.APIKey)
	}
	if resp.Model != settings.DefaultModel {
		t.Errorf("model = %q", resp.Model)
	}
}

func TestSettingsUpdateAndDelete(t *testing.T) {
	s := newTestServer(t, &stubGenerator{text: "{}"})

	w := doJSON(t, s, http.MethodPost, "/settings", `{"model":"gemini-1.5-pro"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}
	model, _ := s.Settings.Model()
	if model != "gemini-1.5-pro" {
		t.Errorf("model = %q", model)
	}

	w = doJSON(t, s, http.MethodDelete, "/settings", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	key, _ := s.Settings.APIKey()
	if key != "" {
		t.Errorf("key should be cleared, got %q", key)
	}
}

func TestExportEndpoint(t *testing.T) {
	s := newTestServer(t, &stubGenerator{text: "{}"})
	body := `{"title":"快思慢想","author":"康納曼","averageScore":"8.2","recommendation":"可考慮閱讀","ratings":[]}`

	w := doJSON(t, s, http.MethodPost, "/export", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "# 📚 快思慢想") {
		t.Error("markdown body missing title heading")
	}
}
