package madndto

// Error is the error member of a failed response. Kind is the coarse class
// (validation, state_conflict, not_found, invariant_violation, transport) and
// Code the machine-readable reason.
type Error struct {
	Kind      string `json:"kind"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "madn service error"
}
