// Package httpapi implements the Composition Service (C8): the HTTP
// surface that accepts generate-video requests, serves finished output
// files, and reports health.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"wordreel/internal/config"
	"wordreel/internal/logging"
	"wordreel/internal/pipeline"
	"wordreel/internal/pipeline/errs"
)

// Runner is the subset of *pipeline.Orchestrator the server depends on,
// kept as an interface so tests can substitute a stub.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, progress pipeline.ProgressFunc) (pipeline.Result, error)
}

// Server is the Composition Service's HTTP surface.
type Server struct {
	bind        string
	outputDir   string
	logger      *slog.Logger
	orch        Runner
	logs        *logging.StreamHub
	archive     *logging.EventArchive
	corsOrigins []string

	listener net.Listener
	server   *http.Server
}

// New constructs a Server. It does not start listening until Start is
// called. hub is optional: when non-nil, /logs serves the events it
// buffers; when nil, /logs reports an empty tail. archive is optional: when
// non-nil, /logs falls back to it for events that have rolled out of hub's
// in-memory buffer.
func New(cfg *config.Config, orch Runner, logger *slog.Logger, hub *logging.StreamHub, archive *logging.EventArchive) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		bind:        cfg.HTTP.Bind,
		outputDir:   cfg.Paths.OutputDir,
		logger:      logger.With(logging.String(logging.FieldComponent, "httpapi")),
		orch:        orch,
		logs:        hub,
		archive:     archive,
		corsOrigins: cfg.HTTP.CORSAllowedOrigins,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/generate-video", s.handleGenerateVideo)
	mux.HandleFunc("/videos/", s.handleVideo)
	mux.HandleFunc("/logs", s.handleLogs)

	s.server = &http.Server{
		Handler:           s.withCORS(mux),
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadHeaderTimeout) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.HTTP.IdleTimeout) * time.Second,
	}
	return s
}

// withCORS wraps next with cross-origin headers, permissive by default
// (allow_origins=["*"], allow_methods=["*"], allow_headers=["*"], matching
// the original's CORSMiddleware) and narrowed to corsOrigins when
// configured. OPTIONS preflight requests are answered directly rather than
// reaching next.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed, echoOrigin := s.corsAllow(origin); allowed {
			if echoOrigin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			w.Header().Set("Access-Control-Allow-Methods", "*")
			w.Header().Set("Access-Control-Allow-Headers", "*")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsAllow reports whether origin may receive CORS headers and, if so,
// whether the response must echo it back rather than use the wildcard.
// An empty allow-list is permissive; a non-empty one only matches origins
// it names exactly.
func (s *Server) corsAllow(origin string) (allowed, echoOrigin bool) {
	if len(s.corsOrigins) == 0 {
		return true, false
	}
	if origin == "" {
		return false, false
	}
	for _, candidate := range s.corsOrigins {
		if candidate == origin {
			return true, true
		}
	}
	return false, false
}

// Start binds the configured address and serves until ctx is cancelled,
// at which point it shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("http api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http api listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down immediately, primarily for tests.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleSearch is an explicit stub: the search/compose flow is an external
// collaborator outside this module's scope (see original spec §9/§14).
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotImplemented, "search is served by an external collaborator, not this service")
}

type generateVideoRequest struct {
	Text                 string  `json:"text"`
	Lang                 string  `json:"lang"`
	MaxPhraseLength      int     `json:"maxPhraseLength"`
	ClipPaddingStart     float64 `json:"clipPaddingStart"`
	ClipPaddingEnd       float64 `json:"clipPaddingEnd"`
	AddSubtitles         bool    `json:"addSubtitles"`
	AspectRatio          string  `json:"aspectRatio"`
	WatermarkText        string  `json:"watermarkText"`
	IntroText            string  `json:"introText"`
	OutroText            string  `json:"outroText"`
	EnhanceAudio         bool    `json:"enhanceAudio"`
	KeepOriginalAudio    bool    `json:"keepOriginalAudio"`
	MaxDownloadWorkers   int     `json:"maxDownloadWorkers"`
	MaxProcessingWorkers int     `json:"maxProcessingWorkers"`
	Debug                bool    `json:"debug"`
}

type wordTimingResponse struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type generateVideoResponse struct {
	Status            string               `json:"status"`
	VideoURL          string               `json:"videoUrl,omitempty"`
	OriginalVideoURL  string               `json:"originalVideoUrl,omitempty"`
	WordTimings       []wordTimingResponse `json:"wordTimings"`
	MissingWords      []string             `json:"missingWords"`
	Message           string               `json:"message,omitempty"`
}

func (s *Server) handleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body generateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	req := pipeline.Request{
		Text:                 body.Text,
		Lang:                 body.Lang,
		MaxPhraseLength:      body.MaxPhraseLength,
		ClipPaddingStart:     body.ClipPaddingStart,
		ClipPaddingEnd:       body.ClipPaddingEnd,
		AddSubtitles:         body.AddSubtitles,
		AspectRatio:          body.AspectRatio,
		WatermarkText:        body.WatermarkText,
		IntroText:            body.IntroText,
		OutroText:            body.OutroText,
		EnhanceAudio:         body.EnhanceAudio,
		KeepOriginalAudio:    body.KeepOriginalAudio,
		MaxDownloadWorkers:   body.MaxDownloadWorkers,
		MaxProcessingWorkers: body.MaxProcessingWorkers,
		Debug:                body.Debug,
	}

	result, err := s.orch.Run(r.Context(), req, nil)
	if err != nil && errors.Is(err, errs.ErrBadRequest) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil && result.Status == "" {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := generateVideoResponse{
		Status:       string(result.Status),
		MissingWords: result.MissingWords,
		Message:      result.Message,
	}
	if result.VideoPath != "" {
		resp.VideoURL = "/videos/" + filepath.Base(result.VideoPath)
	}
	if result.OriginalVideoPath != "" {
		resp.OriginalVideoURL = "/videos/" + filepath.Base(result.OriginalVideoPath)
	}
	for _, t := range result.WordTimings {
		resp.WordTimings = append(resp.WordTimings, wordTimingResponse{Word: t.Word, Start: t.Start, End: t.End})
	}

	status := http.StatusOK
	switch result.Status {
	case errs.StatusFailed:
		status = http.StatusInternalServerError
	case errs.StatusCancelled:
		status = 499
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/videos/")
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		s.writeError(w, http.StatusNotFound, "video not found")
		return
	}

	fullPath := filepath.Join(s.outputDir, name)
	rel, err := filepath.Rel(s.outputDir, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		s.writeError(w, http.StatusNotFound, "video not found")
		return
	}

	http.ServeFile(w, r, fullPath)
}

const maxLogWait = 25 * time.Second

type logTailResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

// handleLogs serves recent daemon log activity from the in-memory stream
// hub, so a CLI or dashboard can tail progress without reading the log
// file directly. ?since=<seq> resumes after a prior response's Next;
// ?wait=true blocks (up to maxLogWait) until a new event arrives or the
// client disconnects.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	wait := query.Get("wait") == "true"

	if s.archive != nil && since < s.logs.FirstSequence() {
		events, next, err := s.archive.ReadSince(since, limit)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, logTailResponse{Events: events, Next: next})
		return
	}

	ctx := r.Context()
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxLogWait)
		defer cancel()
	}

	events, next, err := s.logs.Fetch(ctx, since, limit, wait)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, logTailResponse{Events: events, Next: next})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
