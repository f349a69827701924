package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx
// responses. The central error handler renders it; the type exists here for
// the API docs.
type errorResponse struct {
	Error string `json:"error"`
}
