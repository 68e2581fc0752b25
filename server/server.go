package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/MikeDP/ConfigManager/store"
	"github.com/go-http-utils/etag"
	"github.com/sirupsen/logrus"
)

// Server publishes the raw documents of one or more config repositories over
// HTTP, refreshing them on an interval. Each repository is served at
// /<name>; a WebRepository on the consuming side completes the loop.
type Server struct {
	Repositories    []store.Repository
	RefreshInterval time.Duration
	AuthKey         string
	cancel          context.CancelFunc

	mu          sync.RWMutex
	refreshErrs map[string]error
	ready       bool
}

// NewServer creates a Server, performs an initial refresh of every
// repository, and starts one background refresh goroutine per repository.
// Stop must be called to release them.
func NewServer(ctx context.Context, repositories []store.Repository, refreshInterval time.Duration) *Server {
	if refreshInterval < 5*time.Second {
		logrus.Warn("refresh interval too low, setting it to 5 seconds")
		refreshInterval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	server := &Server{
		Repositories:    repositories,
		RefreshInterval: refreshInterval,
		cancel:          cancel,
		refreshErrs:     make(map[string]error),
	}
	for _, repo := range server.Repositories {
		server.refreshOne(repo)
	}
	server.mu.Lock()
	server.ready = true
	server.mu.Unlock()

	for _, repo := range server.Repositories {
		go server.refreshLoop(ctx, repo)
	}
	return server
}

// refreshOne refreshes a single repository and records its health. A
// document that does not exist yet is not a failure; it simply has nothing
// to serve.
func (s *Server) refreshOne(repo store.Repository) {
	err := repo.Refresh()
	if errors.Is(err, store.ErrNotExist) {
		err = nil
	}
	if err != nil {
		logrus.WithError(err).WithField("name", repo.GetName()).Error("error refreshing repository")
	}
	s.mu.Lock()
	if err != nil {
		s.refreshErrs[repo.GetName()] = err
	} else {
		delete(s.refreshErrs, repo.GetName())
	}
	s.mu.Unlock()
}

func (s *Server) refreshLoop(ctx context.Context, repo store.Repository) {
	ticker := time.NewTicker(s.RefreshInterval)
	for {
		select {
		case <-ticker.C:
			s.refreshOne(repo)
		case <-ctx.Done():
			ticker.Stop()
			return
		}
	}
}

// Stop cancels the background refresh goroutines.
func (s *Server) Stop() {
	s.cancel()
}

// Start serves the handlers on addr behind an etag handler and, when an
// AuthKey is configured, the Auth middleware. It blocks.
func (s *Server) Start(addr string) {
	logrus.Info("starting config server")

	handler := etag.Handler(s.CreateHandlers(), false)
	if s.AuthKey != "" {
		handler = Auth(handler, s.AuthKey)
	}

	if err := http.ListenAndServe(addr, handler); err != nil {
		logrus.WithError(err).Fatal("error starting server")
	}
}

// CreateHandlers builds the route table: one document route per repository
// plus health, ready and status probes.
func (s *Server) CreateHandlers() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/status", s.handleStatus)
	for _, repo := range s.Repositories {
		repo := repo
		mux.HandleFunc("/"+repo.GetName(), func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			response := repo.GetRawData()
			if len(response) == 0 {
				http.Error(w, "config not available", http.StatusNotFound)
				return
			}
			if !isConfigDocument(response) {
				logrus.WithField("name", repo.GetName()).Error("repository holds an invalid config document")
				http.Error(w, "invalid config document", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			if _, err := w.Write(response); err != nil {
				logrus.WithError(err).Error("error writing response")
			}
		})
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	failed := make(map[string]string, len(s.refreshErrs))
	for name, err := range s.refreshErrs {
		failed[name] = err.Error()
	}
	s.mu.RUnlock()

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"errors": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"repositories": len(s.Repositories),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	healthy := len(s.refreshErrs) == 0
	repos := make([]map[string]interface{}, 0, len(s.Repositories))
	for _, repo := range s.Repositories {
		name := repo.GetName()
		entry := map[string]interface{}{
			"name":    name,
			"healthy": true,
		}
		if err, ok := s.refreshErrs[name]; ok {
			entry["healthy"] = false
			entry["error"] = err.Error()
		}
		repos = append(repos, entry)
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"healthy":      healthy,
		"ready":        ready,
		"repositories": repos,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("error writing response")
	}
}

// isConfigDocument reports whether data is a JSON object, the only document
// shape the codec produces.
func isConfigDocument(data []byte) bool {
	var doc map[string]interface{}
	return json.Unmarshal(data, &doc) == nil
}

// Auth rejects requests whose X-API-KEY header does not match authKey.
func Auth(next http.Handler, authKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-KEY")
		if key == "" || key != authKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
