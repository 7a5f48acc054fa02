package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	httperr "github.com/aevon-lab/vahan-pulse/internal/core/errors"
	"github.com/aevon-lab/vahan-pulse/internal/core/storage"
	"github.com/aevon-lab/vahan-pulse/internal/core/storage/file"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgReadBodyFailed  = "Failed to read request body"
	msgPersistFailed   = "Failed to persist registrations"
	msgValidation      = "One or more rows failed validation"
	maxReportedInvalid = 20
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// rowError describes one rejected row. Row numbers are 1-based positions in the upload.
type rowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// IngestHandler handles POST /v1/registrations.
// Accepts text/csv, application/json (an array of rows), an .xlsx body, or a multipart form with a "file" field.
func (s *Service) IngestHandler(c *gin.Context) {
	batchID := uuid.New()

	rows, payloadSize, ierr := s.parseRows(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	if ierr := validateRows(rows); ierr != nil {
		slog.Warn("[Ingestion] Upload rejected", "batch_id", batchID, "rows", len(rows), "error", ierr.message)
		writeError(c, ierr)
		return
	}

	slog.Info("[Ingestion] Received registrations",
		"batch_id", batchID,
		"rows", len(rows),
		"payload_size", payloadSize)

	written, ierr := s.persistRows(c.Request.Context(), rows)
	if ierr != nil {
		writeError(c, ierr)
		return
	}
	if s.counter != nil {
		s.counter.RowsIngested(written)
	}

	snap, err := s.reloader.Reload(c.Request.Context())
	if err != nil {
		// Rows are stored; the next scheduled refresh will serve them.
		slog.Warn("[Ingestion] Stored rows but reload failed", "batch_id", batchID, "error", err)
		c.JSON(http.StatusAccepted, gin.H{
			"status":       "stored",
			"batch_id":     batchID.String(),
			"rows":         written,
			"reload_error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":     "stored",
		"batch_id":   batchID.String(),
		"rows":       written,
		"dataset_id": snap.ID.String(),
	})
}

// DisabledHandler rejects uploads when the configured source cannot be written.
func DisabledHandler(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, httperr.ErrorResponse{
		ErrorType: httperr.HttpIngestionDisabled,
		Message:   "Uploads require a postgres or sqlite source",
	})
}

// parseRows reads the bounded request body and decodes it according to its content type.
func (s *Service) parseRows(c *gin.Context) ([]v1.Registration, int, *ingestionError) {
	// Enforce maximum body size to prevent OOM attacks
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}
	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpPayloadTooLarge,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	rows, ierr := s.decode(c, mediaType, bodyBytes)
	return rows, len(bodyBytes), ierr
}

func (s *Service) decode(c *gin.Context, mediaType string, body []byte) ([]v1.Registration, *ingestionError) {
	switch mediaType {
	case "application/json":
		var rows []v1.Registration
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, &ingestionError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpInvalidJsonError,
				message:    "Invalid JSON body",
				details:    err.Error(),
			}
		}
		return rows, nil

	case "text/csv", "application/csv", "text/plain":
		return decodeFile("upload.csv", bytes.NewReader(body))

	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return decodeFile("upload.xlsx", bytes.NewReader(body))

	case "multipart/form-data":
		header, err := c.FormFile("file")
		if err != nil {
			return nil, &ingestionError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpInvalidCsvError,
				message:    `Multipart upload needs a "file" field`,
			}
		}
		f, err := header.Open()
		if err != nil {
			return nil, &ingestionError{
				statusCode: http.StatusInternalServerError,
				errorType:  httperr.HttpInternalError,
				message:    msgReadBodyFailed,
			}
		}
		defer f.Close()
		return decodeFile(header.Filename, f)

	default:
		return nil, &ingestionError{
			statusCode: http.StatusUnsupportedMediaType,
			errorType:  httperr.HttpUnsupportedMedia,
			message:    fmt.Sprintf("Unsupported content type %q", mediaType),
		}
	}
}

// decodeFile parses a delimited or workbook upload, chosen by file name.
func decodeFile(name string, r io.Reader) ([]v1.Registration, *ingestionError) {
	var (
		rows []v1.Registration
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		rows, err = file.ParseWorkbook(r)
	case ".tsv":
		rows, err = file.ParseDelimited(r, '\t')
	default:
		rows, err = file.ParseDelimited(r, ',')
	}
	if err != nil {
		return nil, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidCsvError,
			message:    "Could not parse upload",
			details:    err.Error(),
		}
	}
	return rows, nil
}

func validateRows(rows []v1.Registration) *ingestionError {
	if len(rows) == 0 {
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    "Upload contains no rows",
		}
	}

	var invalid []rowError
	total := 0
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			total++
			if len(invalid) < maxReportedInvalid {
				invalid = append(invalid, rowError{Row: i + 1, Error: err.Error()})
			}
		}
	}
	if total == 0 {
		return nil
	}
	return &ingestionError{
		statusCode: http.StatusBadRequest,
		errorType:  httperr.HttpValidationError,
		message:    msgValidation,
		details: map[string]interface{}{
			"invalid_rows": total,
			"rows":         invalid,
		},
	}
}

// persistRows upserts the batch through the configured writer.
func (s *Service) persistRows(ctx context.Context, rows []v1.Registration) (int, *ingestionError) {
	written, err := s.writer.SaveRegistrations(ctx, rows)
	if err != nil {
		if errors.Is(err, storage.ErrMalformedRow) {
			return 0, &ingestionError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpValidationError,
				message:    err.Error(),
			}
		}
		slog.Error("[Ingestion] Failed to persist registrations", "error", err, "rows", len(rows))
		return 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}
	return written, nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
