package v1

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

type CreateUploadRequest struct {
	Filename  string `json:"filename"`
	FileType  string `json:"file_type"`
	SessionID string `json:"session_id"`
}

type CreateUploadResponse struct {
	UploadID string       `json:"upload_id"`
	Phase    domain.Phase `json:"phase"`
}

type UploadResponse struct {
	Upload *domain.Upload   `json:"upload"`
	Rows   domain.RowCounts `json:"rows"`
}

type ListUploadsResponse struct {
	Uploads []*domain.Upload `json:"uploads"`
}

type AdvancePhaseRequest struct {
	Progress  *int    `json:"progress"`
	LineCount *int    `json:"line_count"`
	Error     *string `json:"error"`
}

type EncodeRequest struct {
	BatchSize  int `json:"batch_size"`
	MaxBatches int `json:"max_batches"`
}

type ReprocessRequest struct {
	BatchSize   int   `json:"batch_size"`
	LineNumbers []int `json:"line_numbers"`
}

type FailRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	var req CreateUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.FileType == "" {
		req.FileType = string(domain.FileTypeTDDF)
	}

	u, err := h.svc.Lifecycle.CreateUpload(r.Context(), req.Filename, req.FileType, req.SessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, CreateUploadResponse{UploadID: u.ID, Phase: u.Phase})
}

func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	filter := domain.UploadFilter{Limit: defaultPageLimit}

	for _, p := range r.URL.Query()["phase"] {
		phase := domain.Phase(p)
		if !phase.Valid() {
			h.writeError(w, r, domain.NewValidationError("phase", fmt.Sprintf("unknown phase %q", p)))
			return
		}
		filter.Phases = append(filter.Phases, phase)
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.ParseUint(l, 10, 64)
		if err != nil || limit < 1 || limit > maxPageLimit {
			h.writeError(w, r, domain.NewValidationError("limit", "must be in [1;500]"))
			return
		}
		filter.Limit = limit
	}

	uploads, err := h.svc.Queries.Uploads(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if uploads == nil {
		uploads = []*domain.Upload{}
	}

	h.writeJSON(w, r, http.StatusOK, ListUploadsResponse{Uploads: uploads})
}

func (h *Handler) GetUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	u, err := h.svc.Lifecycle.Upload(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respondUpload(w, r, http.StatusOK, u)
}

func (h *Handler) respondUpload(w http.ResponseWriter, r *http.Request, status int, u *domain.Upload) {
	counts, err := h.svc.Queries.CountRows(r.Context(), u.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, status, UploadResponse{Upload: u, Rows: counts})
}

// PutContent stores the raw request body as the upload's content.
func (h *Handler) PutContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, err := readBody(r.Body, h.opts.MaxUploadSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.svc.Ingestor.StoreContent(r.Context(), id, data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, u)
}

func (h *Handler) AdvancePhase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	target := domain.Phase(chi.URLParam(r, "target"))

	var req AdvancePhaseRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.svc.Lifecycle.AdvancePhase(r.Context(), id, domain.PhaseChange{
		To:           target,
		Progress:     req.Progress,
		LineCount:    req.LineCount,
		ErrorMessage: req.Error,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, u)
}

func (h *Handler) Identify(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Identifier.Identify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respondUpload(w, r, http.StatusOK, u)
}

func (h *Handler) Encode(w http.ResponseWriter, r *http.Request) {
	req := EncodeRequest{BatchSize: h.opts.Encode.BatchSize, MaxBatches: h.opts.Encode.MaxBatches}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.svc.Encoder.Encode(r.Context(), chi.URLParam(r, "id"), domain.EncodeOptions{
		BatchSize:  req.BatchSize,
		MaxBatches: req.MaxBatches,
	})
	h.respondEncode(w, r, result, err)
}

func (h *Handler) Reprocess(w http.ResponseWriter, r *http.Request) {
	req := ReprocessRequest{BatchSize: h.opts.Encode.BatchSize}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.svc.Encoder.Reprocess(r.Context(), chi.URLParam(r, "id"), domain.EncodeOptions{
		BatchSize:   req.BatchSize,
		LineNumbers: req.LineNumbers,
	})
	h.respondEncode(w, r, result, err)
}

// respondEncode reports a cancelled run with its partial result.
func (h *Handler) respondEncode(w http.ResponseWriter, r *http.Request, result *domain.EncodeResult, err error) {
	switch {
	case err == nil:
		h.writeJSON(w, r, http.StatusOK, result)
	case errors.Is(err, domain.ErrEncodingCancelled) && result != nil:
		h.writeJSON(w, r, http.StatusConflict, result)
	default:
		h.writeError(w, r, err)
	}
}

func (h *Handler) CancelEncoding(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Encoder.CancelEncoding(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respondUpload(w, r, http.StatusOK, u)
}

func (h *Handler) SetPreviousLevel(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Lifecycle.RewindToLastKnownGood(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respondUpload(w, r, http.StatusOK, u)
}

func (h *Handler) Fail(w http.ResponseWriter, r *http.Request) {
	var req FailRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.svc.Lifecycle.MarkFailed(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, u)
}

func (h *Handler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Lifecycle.SoftDelete(r.Context(), chi.URLParam(r, "id"), r.Header.Get(headerUser)); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// readBody reads src, failing when it holds more than maxSize bytes.
func readBody(src io.Reader, maxSize int64) ([]byte, error) {
	if maxSize > 0 {
		src = io.LimitReader(src, maxSize+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, domain.NewValidationError("content", fmt.Sprintf("exceeds %d bytes", maxSize))
	}

	return data, nil
}
