package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"itam-api/internal/auth"
	"itam-api/internal/inventory"
	"itam-api/pkg/importer"
)

// DefaultMaxBytes caps an upload at 20 MB.
const DefaultMaxBytes = 20 << 20

// ImportsHandler handles Excel import operations
type ImportsHandler struct {
	Target   importer.Target
	MaxBytes int64
	Mapping  *importer.Mapping
	Log      zerolog.Logger
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(target importer.Target, mapping *importer.Mapping, maxBytes int64, log zerolog.Logger) *ImportsHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if mapping == nil {
		mapping = importer.DefaultMapping()
	}
	return &ImportsHandler{
		Target:   target,
		MaxBytes: maxBytes,
		Mapping:  mapping,
		Log:      log,
	}
}

// UploadExcel accepts a multipart .xlsx upload and imports its rows. With
// dry_run=true the workbook is only parsed and classified.
func (h *ImportsHandler) UploadExcel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		sendError(w, "content-type must be multipart/form-data", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		sendError(w, "invalid multipart form: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	dryRun, _ := strconv.ParseBool(r.FormValue("dry_run"))
	maxErrors := importer.DefaultMaxErrors
	if v := r.FormValue("max_errors"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			sendError(w, "max_errors must be a positive integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		maxErrors = n
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		sendError(w, "file is required: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !isXLSX(header) {
		sendError(w, "only .xlsx files are accepted", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	sum, impErr := importer.ImportExcel(r.Context(), h.Target, file, importer.ImportOptions{
		Mapping:   h.Mapping,
		DryRun:    dryRun,
		MaxErrors: maxErrors,
	})
	if impErr != nil {
		if errors.Is(impErr, inventory.ErrPersistence) || errors.Is(impErr, context.Canceled) || errors.Is(impErr, context.DeadlineExceeded) {
			h.Log.Error().Err(impErr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("batch_id", sum.BatchID).
				Msg("import failed")
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": "internal server error",
				"code":  "INTERNAL",
				"data":  sum,
			})
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "IMPORT_FAILED",
			"details": impErr.Error(),
			"data":    sum,
		})
		return
	}

	h.Log.Info().
		Str("batch_id", sum.BatchID).
		Str("file", header.Filename).
		Bool("dry_run", sum.DryRun).
		Int("created", len(sum.Created)).
		Int("errors", sum.Errors).
		Msg("excel import")

	writeJSON(w, http.StatusOK, map[string]any{
		"data": sum,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// isXLSX checks if the uploaded file is an Excel .xlsx file
func isXLSX(h *multipart.FileHeader) bool {
	return strings.EqualFold(filepath.Ext(h.Filename), ".xlsx")
}

func sendError(w http.ResponseWriter, message, code string, status int) {
	writeJSON(w, status, auth.ErrorResponse{Error: message, Code: code})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
