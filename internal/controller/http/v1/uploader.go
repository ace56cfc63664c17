package v1

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

type PingResponse struct {
	ServiceStatus string    `json:"serviceStatus"`
	Environment   string    `json:"environment"`
	Timestamp     time.Time `json:"timestamp"`
	KeyStatus     string    `json:"keyStatus"`
}

type UploaderStatusResponse struct {
	domain.UploadCounts
	Backlog int  `json:"backlog"`
	IsBusy  bool `json:"isBusy"`
}

type StartUploadRequest struct {
	FileName  string `json:"fileName"`
	FileSize  int64  `json:"fileSize"`
	FileType  string `json:"fileType"`
	SessionID string `json:"sessionId"`
}

type StartUploadResponse struct {
	ID    string       `json:"id"`
	Phase domain.Phase `json:"phase"`
}

type ChunkResponse struct {
	ID         string       `json:"id"`
	Phase      domain.Phase `json:"phase"`
	ChunkIndex int          `json:"chunkIndex"`
	Assembled  bool         `json:"assembled"`
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, PingResponse{
		ServiceStatus: "running",
		Environment:   h.opts.Environment,
		Timestamp:     time.Now().UTC(),
		KeyStatus:     h.keyStatus(r),
	})
}

func (h *Handler) UploaderStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Queries.CountUploads(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	backlog := h.svc.Backlog.Status()

	h.writeJSON(w, r, http.StatusOK, UploaderStatusResponse{
		UploadCounts: counts,
		Backlog:      backlog.Pending,
		IsBusy:       backlog.Recovering || (h.opts.BusyThreshold > 0 && backlog.Pending > h.opts.BusyThreshold),
	})
}

func (h *Handler) StartUpload(w http.ResponseWriter, r *http.Request) {
	var req StartUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if h.opts.MaxUploadSize > 0 && req.FileSize > h.opts.MaxUploadSize {
		h.writeError(w, r, domain.NewValidationError("fileSize", fmt.Sprintf("exceeds %d bytes", h.opts.MaxUploadSize)))
		return
	}

	u, err := h.svc.Lifecycle.CreateUpload(r.Context(), req.FileName, fileTypeOrDefault(req.FileType), req.SessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, StartUploadResponse{ID: u.ID, Phase: u.Phase})
}

// UploadFile creates an upload from a multipart file in one request. A
// duplicate is answered with 409, which clients treat as already stored.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := h.formFile(r, "file")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer file.Close()

	data, err := readBody(file, h.opts.MaxUploadSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.svc.Lifecycle.CreateUpload(r.Context(), header.Filename,
		fileTypeOrDefault(r.FormValue("fileType")), r.FormValue("sessionId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if u, err = h.svc.Ingestor.StoreContent(r.Context(), u.ID, data); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, u)
}

func (h *Handler) UploadContent(w http.ResponseWriter, r *http.Request) {
	file, _, err := h.formFile(r, "file")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer file.Close()

	data, err := readBody(file, h.opts.MaxUploadSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.svc.Ingestor.StoreContent(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, u)
}

func (h *Handler) UploadChunk(w http.ResponseWriter, r *http.Request) {
	file, _, err := h.formFile(r, "chunk")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer file.Close()

	index, err := strconv.Atoi(r.FormValue("chunkIndex"))
	if err != nil {
		h.writeError(w, r, domain.NewValidationError("chunkIndex", "must be an integer"))
		return
	}

	total, err := strconv.Atoi(r.FormValue("totalChunks"))
	if err != nil {
		h.writeError(w, r, domain.NewValidationError("totalChunks", "must be an integer"))
		return
	}

	data, err := readBody(file, h.opts.MaxUploadSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	u, assembled, err := h.svc.Ingestor.StoreChunk(r.Context(), chi.URLParam(r, "id"), index, total, data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ChunkResponse{
		ID:         u.ID,
		Phase:      u.Phase,
		ChunkIndex: index,
		Assembled:  assembled,
	})
}

func (h *Handler) formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, domain.NewValidationError("body", err.Error())
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, domain.NewValidationError(field, "is required")
		}
		return nil, nil, fmt.Errorf("failed to read form file %s: %w", field, err)
	}

	return file, header, nil
}

func fileTypeOrDefault(s string) string {
	if s == "" {
		return string(domain.FileTypeTDDF)
	}

	return s
}
