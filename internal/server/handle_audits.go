package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tankarena/arena/internal/audit"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

type CreateAuditRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username"`
	Action   string `json:"action" validate:"required,max=64"`
}

type ImportAuditsResponse struct {
	Message  string `json:"message"`
	Imported int    `json:"imported"`
}

func handleListAudits(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, ok := queryInt(r, "skip", 0)
		if !ok || skip < 0 {
			writeError(w, http.StatusBadRequest, "skip must be a non-negative integer")
			return
		}
		limit, ok := queryInt(r, "limit", defaultAuditLimit)
		if !ok || limit < 1 || limit > maxAuditLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}

		entries, err := store.ListAudits(r.Context(), skip, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// handleCreateAudit writes an entry synchronously. It exists for manual
// debugging; the application records through the asynchronous recorder.
func handleCreateAudit(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAuditRequest
		if msg := decodeValid(r, &req); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		e := audit.Entry{
			UserID:    req.UserID,
			Username:  req.Username,
			Action:    req.Action,
			CreatedAt: time.Now().UTC(),
		}
		if err := store.InsertAudit(r.Context(), e); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func handleExportAudits(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := chi.URLParam(r, "format")
		if format != "csv" && format != "json" {
			writeError(w, http.StatusBadRequest, "format must be csv or json")
			return
		}

		entries, err := store.ListAudits(r.Context(), 0, -1)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Encode fully before writing headers so a failure can still
		// produce an error response.
		var buf bytes.Buffer
		contentType := "text/csv; charset=utf-8"
		if format == "csv" {
			err = audit.WriteCSV(&buf, entries)
		} else {
			contentType = "application/json; charset=utf-8"
			err = audit.WriteJSON(&buf, entries)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=audits.%s", format))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}

func handleImportAudits(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		var (
			entries []audit.Entry
			err     error
		)
		switch format := chi.URLParam(r, "format"); format {
		case "csv":
			entries, err = audit.ReadCSV(r.Body)
		case "json":
			entries, err = audit.ReadJSON(r.Body)
		default:
			writeError(w, http.StatusBadRequest, "format must be csv or json")
			return
		}

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "import too large")
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		n, err := store.ImportAudits(r.Context(), entries)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, ImportAuditsResponse{
			Message:  fmt.Sprintf("imported %d audit entries", n),
			Imported: n,
		})
	}
}
