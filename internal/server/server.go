// Package server exposes one conversation over a small JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/diogo/promptin/internal/chat"
	apierrors "github.com/diogo/promptin/internal/errors"
	"github.com/diogo/promptin/internal/export"
	"github.com/diogo/promptin/internal/logging"
	"github.com/diogo/promptin/internal/models"
)

// MaxBodySize bounds request bodies
const MaxBodySize = 1 << 20

// Handler serves the chat API for a single Controller
type Handler struct {
	ctrl   *chat.Controller
	logger *slog.Logger
}

// NewHandler creates a new Handler
func NewHandler(ctrl *chat.Controller, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{ctrl: ctrl, logger: logger}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

type turnView struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

type stateView struct {
	SystemPrompt string     `json:"system_prompt"`
	PromptSet    bool       `json:"prompt_set"`
	Frozen       bool       `json:"frozen"`
	Pending      bool       `json:"pending"`
	Dangling     bool       `json:"dangling"`
	Generation   uint64     `json:"generation"`
	Turns        []turnView `json:"turns"`
	LastError    string     `json:"last_error,omitempty"`
}

func toView(t models.Turn) turnView {
	return turnView{Speaker: t.Speaker.String(), Content: t.Content}
}

func (h *Handler) state() stateView {
	conv := h.ctrl.Conversation()
	prompt, set := conv.SystemPrompt()
	turns := conv.Turns()

	view := stateView{
		SystemPrompt: prompt,
		PromptSet:    set,
		Frozen:       conv.Frozen(),
		Pending:      conv.Pending(),
		Dangling:     conv.Dangling(),
		Generation:   conv.Generation(),
		Turns:        make([]turnView, len(turns)),
	}
	for i, t := range turns {
		view.Turns[i] = toView(t)
	}
	if err := conv.LastError(); err != nil {
		view.LastError = err.Error()
	}
	return view
}

// RegisterRoutes mounts the API on r
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleState)
		r.Post("/prompt", h.handlePrompt)
		r.Post("/send", h.handleSend)
		r.Post("/clear", h.handleClear)
		r.Get("/transcript", h.handleTranscript)
		r.Get("/export", h.handleExport)
	})
}

// Router builds the full router with the standard middleware stack
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	h.RegisterRoutes(r)
	return r
}

// requestLogger logs one structured record per request
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			ctx := logging.WithRequestID(r.Context(), chiMiddleware.GetReqID(r.Context()))
			next.ServeHTTP(ww, r.WithContext(ctx))

			logging.FromContext(ctx, logger).Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
			)
		})
	}
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, MaxBodySize)).Decode(v)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.ctrl.SetSystemPrompt(req.Prompt); err != nil {
		switch {
		case apierrors.IsBusyError(err):
			Error(w, http.StatusConflict, "a request is already in flight")
		case errors.Is(err, apierrors.ErrPromptFrozen):
			Error(w, http.StatusConflict, "system prompt is locked until the conversation is cleared")
		default:
			Error(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text *string `json:"text"`
	}
	if err := decode(r, &req); err != nil || req.Text == nil {
		Error(w, http.StatusBadRequest, `body must be {"text": "..."}`)
		return
	}

	log := logging.FromContext(r.Context(), h.logger)
	out := h.ctrl.Send(r.Context(), *req.Text)

	switch {
	case out.OK():
		JSON(w, http.StatusOK, map[string]interface{}{
			"reply": toView(out.Reply),
			"turns": h.ctrl.Conversation().Len(),
		})
	case out.Stale:
		Error(w, http.StatusConflict, "conversation was reset")
	case out.Submission == nil && apierrors.IsBusyError(out.Err):
		Error(w, http.StatusConflict, "a request is already in flight")
	default:
		log.Warn("completion failed", slog.String("error", out.Err.Error()))
		status := http.StatusBadGateway
		if apierrors.IsTimeoutError(out.Err) || errors.Is(out.Err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		Error(w, status, out.Err.Error())
	}
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Reset()
	JSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", export.MIMEPlain)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, h.ctrl.Export())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.ctrl.Document(format)
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", doc.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc.Body)
}

// Run serves h on addr until ctx is done, then shuts down gracefully
func Run(ctx context.Context, addr string, h *Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	h.logger.Info("shutting down")
	h.ctrl.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
