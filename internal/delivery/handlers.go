// Package delivery exposes the search and settings operations over HTTP
// for the web adapter. Model-written text is sanitized before it leaves
// this layer; the stored API key never appears unredacted in a response.
package delivery

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"bookrater/internal/export"
	"bookrater/internal/gemini"
	"bookrater/internal/links"
	"bookrater/internal/logger"
	"bookrater/internal/metrics"
	"bookrater/internal/repair"
	"bookrater/internal/search"
	"bookrater/internal/settings"
)

var sanitize = bluemonday.StrictPolicy()

type Server struct {
	Log      *logrus.Logger
	Search   *search.Service
	Settings *settings.Store
}

// Routes wires every endpoint onto a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.Health)
	mux.HandleFunc("/search", s.SearchBook)
	mux.HandleFunc("/settings", s.SettingsHandler)
	mux.HandleFunc("/export", s.Export)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	metrics.HttpRequestsTotal.WithLabelValues("health", "200").Inc()
}

type searchResponse struct {
	*search.BookRecord
	PurchaseLinks []links.Link      `json:"purchaseLinks,omitempty"`
	RatingLinks   map[string]string `json:"ratingLinks,omitempty"`
}

// POST /search
func (s *Server) SearchBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST", nil)
		metrics.HttpRequestsTotal.WithLabelValues("search", "405").Inc()
		return
	}

	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body", err.Error())
		metrics.HttpRequestsTotal.WithLabelValues("search", "400").Inc()
		return
	}

	creds, err := s.Settings.Credentials()
	if err != nil {
		s.Log.WithError(err).Error("settings read failed")
		WriteError(w, http.StatusInternalServerError, "internal", "settings unavailable", nil)
		metrics.HttpRequestsTotal.WithLabelValues("search", "500").Inc()
		return
	}

	ctx := logger.ContextWithID(r.Context(), uuid.NewString())
	record, err := s.Search.Search(ctx, creds, req)
	if err != nil {
		status, code := searchStatus(err)
		WriteError(w, status, code, search.UserMessage(err), nil)
		metrics.HttpRequestsTotal.WithLabelValues("search", fmt.Sprint(status)).Inc()
		return
	}

	sanitizeRecord(record)
	writeJSON(w, http.StatusOK, buildResponse(record))
	metrics.HttpRequestsTotal.WithLabelValues("search", "200").Inc()
}

func buildResponse(rec *search.BookRecord) searchResponse {
	resp := searchResponse{BookRecord: rec}
	if rec.NoRatings {
		resp.PurchaseLinks = links.Purchase(rec.Title, rec.Author)
	}
	if len(rec.Ratings) > 0 {
		resp.RatingLinks = make(map[string]string, len(rec.Ratings))
		book := links.Book{
			Title:      rec.Title,
			TitleEn:    rec.TitleEn,
			Author:     rec.Author,
			AuthorEn:   rec.AuthorEn,
			Simplified: rec.SimplifiedTitle,
		}
		for _, e := range rec.Ratings {
			if u := links.RatingPlatform(e.Platform, book); u != "" {
				resp.RatingLinks[e.Platform] = u
			}
		}
	}
	return resp
}

// sanitizeRecord strips any markup the model smuggled into text fields.
func sanitizeRecord(rec *search.BookRecord) {
	rec.Title = sanitize.Sanitize(rec.Title)
	rec.TitleEn = sanitize.Sanitize(rec.TitleEn)
	rec.Author = sanitize.Sanitize(rec.Author)
	rec.AuthorEn = sanitize.Sanitize(rec.AuthorEn)
	rec.MainIdeal = sanitize.Sanitize(rec.MainIdeal)
	rec.SimpleExplanation = sanitize.Sanitize(rec.SimpleExplanation)
	for i := range rec.Summaries {
		rec.Summaries[i] = sanitize.Sanitize(rec.Summaries[i])
	}
	for i := range rec.KeyQuestions {
		rec.KeyQuestions[i] = sanitize.Sanitize(rec.KeyQuestions[i])
	}
	for i := range rec.Ratings {
		rec.Ratings[i].Summary = sanitize.Sanitize(rec.Ratings[i].Summary)
	}
	for i := range rec.Books {
		rec.Books[i].Title = sanitize.Sanitize(rec.Books[i].Title)
		rec.Books[i].MainSummary = sanitize.Sanitize(rec.Books[i].MainSummary)
		rec.Books[i].SimpleExplanation = sanitize.Sanitize(rec.Books[i].SimpleExplanation)
		for j := range rec.Books[i].Ratings {
			rec.Books[i].Ratings[j].Summary = sanitize.Sanitize(rec.Books[i].Ratings[j].Summary)
		}
	}
}

func searchStatus(err error) (int, string) {
	var transport *gemini.TransportError
	var truncated *gemini.TruncatedError
	var malformed *repair.MalformedError
	switch {
	case errors.Is(err, search.ErrEmptyQuery), errors.Is(err, search.ErrTooManyPlatforms):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, gemini.ErrNoAPIKey):
		return http.StatusUnauthorized, "no_api_key"
	case errors.Is(err, search.ErrNoData), errors.Is(err, repair.ErrNoJSON):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, search.ErrSuperseded):
		return http.StatusConflict, "superseded"
	case errors.As(err, &transport), errors.As(err, &truncated), errors.As(err, &malformed):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// SettingsHandler serves GET (read, key redacted), POST (update) and
// DELETE (forget the key).
func (s *Server) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getSettings(w)
	case http.MethodPost:
		s.postSettings(w, r)
	case http.MethodDelete:
		s.deleteSettings(w)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET, POST or DELETE", nil)
		metrics.HttpRequestsTotal.WithLabelValues("settings", "405").Inc()
	}
}

func (s *Server) getSettings(w http.ResponseWriter) {
	key, err := s.Settings.APIKey()
	if err == nil {
		var model string
		model, err = s.Settings.Model()
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"apiKey":    logger.RedactKey(key),
				"hasApiKey": key != "",
				"model":     model,
			})
			metrics.HttpRequestsTotal.WithLabelValues("settings", "200").Inc()
			return
		}
	}
	s.Log.WithError(err).Error("settings read failed")
	WriteError(w, http.StatusInternalServerError, "internal", "settings unavailable", nil)
	metrics.HttpRequestsTotal.WithLabelValues("settings", "500").Inc()
}

func (s *Server) postSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		APIKey *string `json:"apiKey"`
		Model  *string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body", err.Error())
		metrics.HttpRequestsTotal.WithLabelValues("settings", "400").Inc()
		return
	}
	if body.APIKey != nil {
		if err := s.Settings.SetAPIKey(*body.APIKey); err != nil {
			s.Log.WithError(err).Error("settings write failed")
			WriteError(w, http.StatusInternalServerError, "internal", "settings unavailable", nil)
			metrics.HttpRequestsTotal.WithLabelValues("settings", "500").Inc()
			return
		}
	}
	if body.Model != nil {
		if err := s.Settings.SetModel(*body.Model); err != nil {
			s.Log.WithError(err).Error("settings write failed")
			WriteError(w, http.StatusInternalServerError, "internal", "settings unavailable", nil)
			metrics.HttpRequestsTotal.WithLabelValues("settings", "500").Inc()
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	metrics.HttpRequestsTotal.WithLabelValues("settings", "200").Inc()
}

func (s *Server) deleteSettings(w http.ResponseWriter) {
	if err := s.Settings.ClearAPIKey(); err != nil {
		s.Log.WithError(err).Error("settings delete failed")
		WriteError(w, http.StatusInternalServerError, "internal", "settings unavailable", nil)
		metrics.HttpRequestsTotal.WithLabelValues("settings", "500").Inc()
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	metrics.HttpRequestsTotal.WithLabelValues("settings", "200").Inc()
}

// POST /export — renders a previously returned record as Markdown.
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST", nil)
		metrics.HttpRequestsTotal.WithLabelValues("export", "405").Inc()
		return
	}
	var rec search.BookRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body", err.Error())
		metrics.HttpRequestsTotal.WithLabelValues("export", "400").Inc()
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", exportFilename(&rec)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(export.Markdown(&rec)))
	metrics.HttpRequestsTotal.WithLabelValues("export", "200").Inc()
}

func exportFilename(rec *search.BookRecord) string {
	name := rec.Title
	if rec.IsAuthorSearch {
		name = rec.Author
	}
	if name == "" {
		name = "book-rating"
	}
	return fmt.Sprintf("%s-%s.md", name, time.Now().Format("20060102"))
}

// --- helpers ---

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
