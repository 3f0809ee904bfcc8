package madndto

import "encoding/json"

// Envelope wraps every HTTP response body.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Decode unmarshals the data member into v. A failed envelope returns its
// error instead.
func (e *Envelope) Decode(v any) error {
	if !e.Success {
		if e.Error != nil {
			return *e.Error
		}
		return Error{Kind: "transport", Code: "invalid_response", Message: "unsuccessful response without error"}
	}
	if v == nil || len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}
