package handler

// Response is the success envelope. Error responses are written by the error
// middleware, which maps application error codes to HTTP statuses and carries
// the request id; handlers only shape success payloads.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

// ListResponse wraps capped collection reads. Count lets callers detect a
// truncated page without re-counting the payload.
type ListResponse struct {
	Status string      `json:"status"`
	Count  int         `json:"count"`
	Data   interface{} `json:"data"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewListResponse(count int, data interface{}) *ListResponse {
	return &ListResponse{
		Status: "success",
		Count:  count,
		Data:   data,
	}
}
