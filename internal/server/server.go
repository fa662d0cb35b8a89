// Package server exposes the saved-item store and the news feeds over
// HTTP using the routes the flip client speaks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/pders01/flip/internal/api"
	"github.com/pders01/flip/internal/debuglog"
	"github.com/pders01/flip/internal/feed"
	"github.com/pders01/flip/internal/saved"
	"github.com/pders01/flip/internal/validation"
)

const (
	maxBodyBytes   = 1 << 20
	maxBulkURLs    = 500
	defaultNewsTTL = 5 * time.Minute
)

type Options struct {
	// NewsTTL is how long a fetched news category is served from memory.
	// Zero uses the default; negative disables caching.
	NewsTTL time.Duration
}

type Server struct {
	store     saved.Store
	news      feed.Source
	validator *validation.URLValidator
	now       func() time.Time
	newsTTL   time.Duration

	cacheMu sync.Mutex
	cache   map[feed.Category]cachedNews

	router *mux.Router
}

type cachedNews struct {
	items     feed.Sequence
	fetchedAt time.Time
}

func New(store saved.Store, news feed.Source, opts Options) *Server {
	ttl := opts.NewsTTL
	if ttl == 0 {
		ttl = defaultNewsTTL
	}
	s := &Server{
		store:     store,
		news:      news,
		validator: validation.NewArticleURLValidator(),
		now:       time.Now,
		newsTTL:   ttl,
		cache:     make(map[feed.Category]cachedNews),
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID, logRequests, recoverPanics, cors)

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/news/categories", s.handleCategories).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/news/{category}", s.handleNews).Methods(http.MethodGet, http.MethodOptions)

	const savedPath = "/api/users/{user}/saved-articles"
	r.HandleFunc(savedPath, s.handleList).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc(savedPath, s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc(savedPath+"/check", s.handleCheck).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc(savedPath+"/bulk-check", s.handleBulkCheck).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc(savedPath+"/{id:[0-9]+}", s.handleDelete).Methods(http.MethodDelete, http.MethodOptions)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	cats := feed.Categories()
	resp := api.CategoriesResponse{Categories: make([]api.Category, len(cats))}
	for i, c := range cats {
		resp.Categories[i] = api.Category{ID: string(c.Key), Name: c.Title, Path: c.APIPath}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["category"]
	category, ok := feed.CategoryForPath(path)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown news category")
		return
	}

	items, err := s.newsFor(r.Context(), category)
	if err != nil {
		logFor(r).Errorf("fetching %s news: %v", category, err)
		writeJSON(w, http.StatusInternalServerError, api.NewsResponse{
			Status:   api.StatusError,
			Articles: []api.Article{},
			Error:    "Failed to fetch " + category.Title() + " news",
			Message:  err.Error(),
		})
		return
	}

	articles := make([]api.Article, len(items))
	for i, it := range items {
		articles[i] = api.ArticleFromItem(it)
	}
	writeJSON(w, http.StatusOK, api.NewsResponse{
		Status:    api.StatusSuccess,
		Articles:  articles,
		Count:     len(articles),
		Focus:     string(category),
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) newsFor(ctx context.Context, category feed.Category) (feed.Sequence, error) {
	if s.newsTTL > 0 {
		s.cacheMu.Lock()
		c, ok := s.cache[category]
		s.cacheMu.Unlock()
		if ok && s.now().Sub(c.fetchedAt) < s.newsTTL {
			return c.items, nil
		}
	}

	items, err := s.news.Fetch(ctx, category)
	if err != nil {
		return nil, err
	}

	if s.newsTTL > 0 {
		s.cacheMu.Lock()
		s.cache[category] = cachedNews{items: items, fetchedAt: s.now()}
		s.cacheMu.Unlock()
	}
	return items, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	records, err := s.store.List(r.Context(), user)
	if err != nil {
		s.internalError(w, r, "listing saved articles", err)
		return
	}

	list := api.SavedList{
		Status:        api.StatusSuccess,
		SavedArticles: make([]api.SavedArticle, len(records)),
		Count:         len(records),
		Username:      user,
	}
	for i, rec := range records {
		list.SavedArticles[i] = api.SavedFromRecord(rec)
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var article api.Article
	if !decodeJSON(w, r, &article) {
		return
	}

	draft := article.Draft()
	if err := draft.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Title and URL are required")
		return
	}
	if _, err := s.validator.ValidateAndNormalize(draft.URL); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid article URL: "+err.Error())
		return
	}

	user := mux.Vars(r)["user"]
	rec, err := s.store.Create(r.Context(), user, draft)
	switch {
	case errors.Is(err, saved.ErrDuplicate):
		writeError(w, http.StatusBadRequest, "Article already saved")
		return
	case errors.Is(err, saved.ErrInvalidDraft):
		writeError(w, http.StatusBadRequest, "Title and URL are required")
		return
	case err != nil:
		s.internalError(w, r, "saving article", err)
		return
	}

	logFor(r).Infof("saved article %d for %s", rec.ID, user)
	writeJSON(w, http.StatusCreated, api.SaveResponse{
		Message:      "Article saved successfully",
		SavedArticle: api.SavedFromRecord(rec),
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req api.CheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	res, err := s.store.Check(r.Context(), mux.Vars(r)["user"], url)
	if err != nil {
		s.internalError(w, r, "checking saved status", err)
		return
	}
	writeJSON(w, http.StatusOK, api.CheckFromResult(res))
}

func (s *Server) handleBulkCheck(w http.ResponseWriter, r *http.Request) {
	var req api.BulkCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.URLs) > maxBulkURLs {
		writeError(w, http.StatusBadRequest, "Too many URLs (max "+strconv.Itoa(maxBulkURLs)+")")
		return
	}

	user := mux.Vars(r)["user"]
	results, err := s.bulkCheck(r.Context(), user, req.URLs)
	if err != nil {
		s.internalError(w, r, "checking saved status", err)
		return
	}

	resp := api.BulkCheckResponse{Results: make(map[string]api.CheckResponse, len(results))}
	for u, res := range results {
		resp.Results[u] = api.CheckFromResult(res)
	}
	writeJSON(w, http.StatusOK, resp)
}

// bulkCheck uses the store's batch lookup when it has one.
func (s *Server) bulkCheck(ctx context.Context, user string, urls []string) (map[string]saved.CheckResult, error) {
	if bc, ok := s.store.(saved.BulkChecker); ok {
		return bc.BulkCheck(ctx, user, urls)
	}
	out := make(map[string]saved.CheckResult, len(urls))
	for _, u := range urls {
		res, err := s.store.Check(ctx, user, u)
		if err != nil {
			return nil, err
		}
		out[u] = res
	}
	return out, nil
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Saved article not found")
		return
	}

	err = s.store.Delete(r.Context(), vars["user"], id)
	switch {
	case errors.Is(err, saved.ErrNotFound):
		writeError(w, http.StatusNotFound, "Saved article not found")
		return
	case err != nil:
		s.internalError(w, r, "removing saved article", err)
		return
	}
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Article removed from saved articles"})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logFor(r).Errorf("%s: %v", op, err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debuglog.Warnf("writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: message})
}
