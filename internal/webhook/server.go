// Copyright 2025 The Deployd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/deployd/internal/apps"
	"github.com/mikelane/deployd/internal/github"
	"github.com/mikelane/deployd/internal/ingress"
)

// Deployer applies and removes application deployments.
type Deployer interface {
	Upsert(ctx context.Context, app *apps.Application) error
	Delete(ctx context.Context, app *apps.Application) error
	URL(app *apps.Application) string
}

// Server handles deployment event requests from the pipeline
type Server struct {
	addr          string
	port          int
	engine        Deployer
	notifier      github.Notifier
	webhookSecret string
	server        *http.Server
	rateLimiter   *RateLimiter
}

// RateLimiter provides per-team rate limiting
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*bucket
	limit    int
	window   time.Duration
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewServer creates a new webhook server. The notifier may be nil, in
// which case deployment outcomes are not reported to GitHub.
func NewServer(addr string, port int, engine Deployer, notifier github.Notifier, webhookSecret string) *Server {
	return &Server{
		addr:          addr,
		port:          port,
		engine:        engine,
		notifier:      notifier,
		webhookSecret: webhookSecret,
		rateLimiter:   NewRateLimiter(10, time.Second), // 10 requests per second per team
	}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*bucket),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request from the given team should be allowed
func (rl *RateLimiter) Allow(team string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.limiters[team]
	if !exists {
		b = &bucket{
			tokens:    rl.limit,
			lastReset: time.Now(),
		}
		rl.limiters[team] = b
	}

	// Reset bucket if window has passed
	if time.Since(b.lastReset) >= rl.window {
		b.tokens = rl.limit
		b.lastReset = time.Now()
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}

	return false
}

// Start starts the webhook server
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.addr, s.port),
		Handler: mux,
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		log.Log.Info("Starting webhook server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Log.Info("Shutting down webhook server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleWebhook handles deployment event requests
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	// Only accept POST requests
	if r.Method != http.MethodPost {
		writeResponse(w, http.StatusMethodNotAllowed, response{Status: "error", Message: "method not allowed"})
		return
	}

	// Read body
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error(err, "Failed to read request body")
		writeResponse(w, http.StatusBadRequest, response{Status: "error", Message: "failed to read body"})
		return
	}
	defer r.Body.Close()

	// Validate signature
	signature := r.Header.Get(SignatureHeader)
	if !ValidateSignature(payload, signature, s.webhookSecret) {
		logger.Info("Invalid webhook signature")
		writeResponse(w, http.StatusUnauthorized, response{Status: "error", Message: "invalid signature"})
		return
	}

	// Parse event
	var event DeploymentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		logger.Error(err, "Failed to parse JSON payload")
		writeResponse(w, http.StatusBadRequest, response{Status: "error", Message: "invalid JSON"})
		return
	}

	// Rate limiting check
	if !s.rateLimiter.Allow(event.Application.Team) {
		logger.Info("Rate limit exceeded", "team", event.Application.Team)
		writeResponse(w, http.StatusTooManyRequests, response{Status: "error", Message: "too many requests"})
		return
	}

	// Handle event
	ctx := r.Context()
	switch strings.ToLower(event.Action) {
	case ActionDeploy:
		if err := s.engine.Upsert(ctx, &event.Application); err != nil {
			logger.Error(err, "Failed to deploy application",
				"name", event.Application.Name, "ns", event.Application.Namespace)
			s.notifyStatus(ctx, &event, github.FailedStatus(err.Error()))
			writeResponse(w, statusCodeFor(err), response{Status: "error", Message: err.Error()})
			return
		}
		url := s.engine.URL(&event.Application)
		s.notifyStatus(ctx, &event, github.DeployedStatus(url))
		writeResponse(w, http.StatusCreated, response{Status: "deployed", URL: url})

	case ActionUndeploy:
		if err := s.engine.Delete(ctx, &event.Application); err != nil {
			logger.Error(err, "Failed to undeploy application",
				"name", event.Application.Name, "ns", event.Application.Namespace)
			writeResponse(w, statusCodeFor(err), response{Status: "error", Message: err.Error()})
			return
		}
		writeResponse(w, http.StatusOK, response{Status: "undeployed"})

	default:
		logger.V(1).Info("Ignoring unknown action", "action", event.Action)
		writeResponse(w, http.StatusOK, response{Status: "ignored"})
	}
}

// notifyStatus reports a deployment outcome as a commit status. Reporting
// failures are logged and never fail the request.
func (s *Server) notifyStatus(ctx context.Context, event *DeploymentEvent, status *github.Status) {
	if s.notifier == nil || event.Commit == nil {
		return
	}
	if err := s.notifier.UpdateCommitStatus(ctx, *event.Commit, status); err != nil {
		log.FromContext(ctx).Error(err, "Failed to update commit status",
			"owner", event.Commit.Owner, "repo", event.Commit.Repo, "sha", event.Commit.SHA)
	}
}

// statusCodeFor maps a deployment error to an HTTP status code. Descriptor
// validation problems are the caller's fault; ingress route conflicts mean
// the path is owned by another application.
func statusCodeFor(err error) int {
	var verr *apps.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	var cerr *ingress.ConflictError
	if errors.As(err, &cerr) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeResponse(w http.ResponseWriter, code int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
