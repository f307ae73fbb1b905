package types

// API error codes.
const (
	CodeBadRequest   = "BOARD_400"
	CodeUnauthorized = "BOARD_401"
	CodeForbidden    = "BOARD_403"
	CodeNotFound     = "BOARD_404"
	CodeInternal     = "BOARD_500"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds a consistent API error payload.
// details can be string, map, struct, etc.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
