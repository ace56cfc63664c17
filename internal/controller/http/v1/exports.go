package v1

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jszwec/csvutil"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
	"github.com/kurochkinivan/tddf_pipeline/internal/report"
)

const exportPageSize = 1000

type RecordsResponse struct {
	Records    []*domain.StructuredRecord `json:"records"`
	Pagination Pagination                 `json:"pagination"`
}

func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	page, limit, err := parsePagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.svc.Lifecycle.Upload(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	offset := (page - 1) * limit

	records, total, err := h.svc.Queries.Records(r.Context(), id, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, RecordsResponse{
		Records:    records,
		Pagination: newPagination(page, limit, total),
	})
}

// ExportRows streams every raw import row of the upload as CSV.
func (h *Handler) ExportRows(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.svc.Lifecycle.Upload(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	rows, err := h.svc.Queries.Rows(r.Context(), id, 0, exportPageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"-rows.csv"))

	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(domain.RawImportRow{}); err != nil {
		h.writeError(w, r, err)
		return
	}

	// заголовки уже отправлены, дальше ошибки только в лог
	for len(rows) > 0 {
		if err := enc.Encode(rows); err != nil {
			h.log.ErrorContext(r.Context(), "failed to encode rows",
				slog.String("upload_id", id),
				slog.String("err", err.Error()),
			)
			return
		}

		if len(rows) < exportPageSize {
			break
		}

		after := rows[len(rows)-1].LineNumber
		if rows, err = h.svc.Queries.Rows(r.Context(), id, after, exportPageSize); err != nil {
			h.log.ErrorContext(r.Context(), "failed to read rows",
				slog.String("upload_id", id),
				slog.String("err", err.Error()),
			)
			return
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		h.log.ErrorContext(r.Context(), "failed to flush csv",
			slog.String("upload_id", id),
			slog.String("err", err.Error()),
		)
	}
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	u, err := h.svc.Lifecycle.Upload(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	counts, err := h.svc.Queries.CountRows(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	types, err := h.svc.Queries.RecordTypeCounts(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pdf, err := h.svc.Reports.GenerateReport(report.Input{Upload: u, Rows: counts, RecordTypes: types})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", id+"-report.pdf"))
	w.Write(pdf)
}

func (h *Handler) BacklogStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.svc.Backlog.Status())
}
