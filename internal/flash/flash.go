package flash

import "time"

// Flash is one-shot state carried across a redirect: a success message, or the
// validation errors plus the old input to refill the form with.
type Flash struct {
	Success   string            `json:"success,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Old       map[string]string `json:"old,omitempty"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Error returns the message recorded for field, or "".
func (f *Flash) Error(field string) string {
	if f == nil {
		return ""
	}
	return f.Errors[field]
}

// OldValue returns the previously submitted value of field, or "".
func (f *Flash) OldValue(field string) string {
	if f == nil {
		return ""
	}
	return f.Old[field]
}

// HasErrors reports whether any field error was flashed.
func (f *Flash) HasErrors() bool {
	return f != nil && len(f.Errors) > 0
}
