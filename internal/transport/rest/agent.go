package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/wardsync/internal/auth"
	"github.com/heartmarshall/wardsync/internal/connectivity"
	"github.com/heartmarshall/wardsync/internal/domain"
	"github.com/heartmarshall/wardsync/internal/service/syncer"
)

type pendingReader interface {
	ListPending(ctx context.Context) ([]domain.PendingOperation, error)
	Count(ctx context.Context) (int, error)
}

type drainer interface {
	DrainPending(ctx context.Context) (syncer.Result, error)
}

type connectivityMonitor interface {
	Status() bool
	Handle(online bool) bool
}

type noticeBoard interface {
	Current() (connectivity.Notice, bool)
}

type tokenStore interface {
	SetToken(ctx context.Context, token string) (auth.TokenInfo, error)
	Clear(ctx context.Context) error
	Info(ctx context.Context) (auth.TokenInfo, error)
}

// AgentHandler serves the sync, connectivity and token endpoints.
type AgentHandler struct {
	pending pendingReader
	syncer  drainer
	monitor connectivityMonitor
	notices noticeBoard
	tokens  tokenStore
	log     *slog.Logger
}

// NewAgentHandler creates an AgentHandler.
func NewAgentHandler(
	pending pendingReader,
	syncer drainer,
	monitor connectivityMonitor,
	notices noticeBoard,
	tokens tokenStore,
	logger *slog.Logger,
) *AgentHandler {
	return &AgentHandler{
		pending: pending,
		syncer:  syncer,
		monitor: monitor,
		notices: notices,
		tokens:  tokens,
		log:     logger.With("handler", "agent"),
	}
}

// Pending handles GET /local/pending.
func (h *AgentHandler) Pending(w http.ResponseWriter, r *http.Request) {
	ops, err := h.pending.ListPending(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	if ops == nil {
		ops = []domain.PendingOperation{}
	}
	writeJSON(w, http.StatusOK, ops)
}

// Sync handles POST /local/sync: a manual drain.
func (h *AgentHandler) Sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.syncer.DrainPending(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type connectivityRequest struct {
	Online *bool `json:"online"`
}

type connectivityResponse struct {
	Online  bool `json:"online"`
	Changed bool `json:"changed"`
}

// Connectivity handles POST /local/connectivity, the browser's online and
// offline events.
func (h *AgentHandler) Connectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	if req.Online == nil {
		handleError(h.log, w, r, domain.NewValidationError("online", "required"))
		return
	}

	changed := h.monitor.Handle(*req.Online)
	writeJSON(w, http.StatusOK, connectivityResponse{Online: h.monitor.Status(), Changed: changed})
}

type statusResponse struct {
	Online  bool                 `json:"online"`
	Notice  *connectivity.Notice `json:"notice,omitempty"`
	Pending int                  `json:"pending"`
	Token   auth.TokenInfo       `json:"token"`
}

// Status handles GET /local/status.
func (h *AgentHandler) Status(w http.ResponseWriter, r *http.Request) {
	n, err := h.pending.Count(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	info, err := h.tokens.Info(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	resp := statusResponse{Online: h.monitor.Status(), Pending: n, Token: info}
	if notice, ok := h.notices.Current(); ok {
		resp.Notice = &notice
	}
	writeJSON(w, http.StatusOK, resp)
}

type tokenRequest struct {
	Token string `json:"token"`
}

// PutToken handles PUT /local/token.
func (h *AgentHandler) PutToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	info, err := h.tokens.SetToken(r.Context(), req.Token)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// DeleteToken handles DELETE /local/token.
func (h *AgentHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Clear(r.Context()); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
