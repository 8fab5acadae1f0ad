package global

// APIResponse is the envelope of every response body.
type APIResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Message: message,
		Data:    data,
	}
}

// ErrorResponse carries an optional field-keyed message map in data.
func ErrorResponse(message string, fields map[string]string) APIResponse {
	resp := APIResponse{Message: message}
	if len(fields) > 0 {
		resp.Data = fields
	}
	return resp
}
