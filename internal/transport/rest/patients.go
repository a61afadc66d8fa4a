package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/wardsync/internal/domain"
	"github.com/heartmarshall/wardsync/internal/service/intake"
)

type intakeService interface {
	Submit(ctx context.Context, p domain.Patient) (intake.Outcome, error)
}

type recordReader interface {
	GetRecordByID(ctx context.Context, id string) (*domain.LocalRecord, error)
	GetRecordByNaturalKey(ctx context.Context, key string) (*domain.LocalRecord, error)
	GetAllRecords(ctx context.Context) ([]domain.LocalRecord, error)
}

// PatientHandler serves patient submission and local lookups.
type PatientHandler struct {
	intake  intakeService
	records recordReader
	log     *slog.Logger
}

// NewPatientHandler creates a PatientHandler.
func NewPatientHandler(intake intakeService, records recordReader, logger *slog.Logger) *PatientHandler {
	return &PatientHandler{intake: intake, records: records, log: logger.With("handler", "patients")}
}

type submitResponse struct {
	OK           bool   `json:"ok"`
	ID           string `json:"id"`
	State        string `json:"state"`
	Offline      bool   `json:"offline"`
	SubmissionID string `json:"submissionId"`
	Message      string `json:"message"`
}

const (
	msgRegistered   = "Paciente registrado correctamente"
	msgSavedOffline = "Guardado offline"
)

// Submit handles POST /local/patients.
// 201 when the remote API took the write, 202 when it was queued offline.
func (h *PatientHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var p domain.Patient
	if err := decodeJSON(w, r, &p); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	out, err := h.intake.Submit(r.Context(), p)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	resp := submitResponse{
		OK:           out.Success(),
		ID:           out.ID,
		State:        string(out.State),
		Offline:      out.Offline,
		SubmissionID: out.SubmissionID.String(),
	}

	switch out.State {
	case intake.StateSucceeded:
		resp.Message = msgRegistered
		writeJSON(w, http.StatusCreated, resp)
	case intake.StateSavedOffline:
		resp.Message = msgRegistered + " (" + msgSavedOffline + ")"
		writeJSON(w, http.StatusAccepted, resp)
	default:
		h.log.ErrorContext(r.Context(), "submission failed",
			slog.String("submission_id", resp.SubmissionID),
			slog.Any("error", out.Err),
		)
		resp.Message = "Error guardando los datos localmente"
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// List handles GET /local/patients.
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.records.GetAllRecords(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	if recs == nil {
		recs = []domain.LocalRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// Get handles GET /local/patients/{id}.
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.GetRecordByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetByIdentificacion handles GET /local/patients/identificacion/{identificacion}.
func (h *PatientHandler) GetByIdentificacion(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.GetRecordByNaturalKey(r.Context(), chi.URLParam(r, "identificacion"))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
