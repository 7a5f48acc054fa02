package errors

const (
	HttpInternalError      = "internal_error"
	HttpInvalidJsonError   = "invalid_json"
	HttpInvalidCsvError    = "invalid_csv"
	HttpInvalidQueryError  = "invalid_query"
	HttpValidationError    = "validation_failed"
	HttpViewNotFoundError  = "view_not_found"
	HttpDatasetUnavailable = "dataset_unavailable"
	HttpIngestionDisabled  = "ingestion_disabled"
	HttpUnsupportedMedia   = "unsupported_media_type"
	HttpPayloadTooLarge    = "payload_too_large"
)

// ErrorResponse is the error response body for API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
