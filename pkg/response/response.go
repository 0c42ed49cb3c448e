package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Kind       string      `json:"kind,omitempty"` // machine-readable error kind
	Error      string      `json:"error,omitempty"`
	Retryable  bool        `json:"retryable,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Failure is Error with a machine-readable kind attached.
func Failure(statusCode int, kind, err string, retryable bool) Response {
	r := Error(statusCode, err)
	r.Kind = kind
	r.Retryable = retryable
	return r
}
