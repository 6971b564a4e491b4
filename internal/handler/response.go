package handler

// Response is the uniform JSON envelope returned by every endpoint that
// does not stream a file.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{Status: "success", Data: data}
}

// NewListResponse wraps a slice result and reports its length so clients
// can page without a separate count request.
func NewListResponse(data interface{}, count int) *Response {
	return &Response{Status: "success", Data: data, Count: &count}
}

func NewErrorResponse(message string) *Response {
	return &Response{Status: "error", Message: message}
}
