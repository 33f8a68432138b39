package redact

import (
	"net/http"
	"strings"
)

const RedactedPlaceholder = "[REDACTED]"

// DefaultSensitiveHeaders are masked even when not configured explicitly.
var DefaultSensitiveHeaders = []string{"Authorization", "Proxy-Authorization", "Cookie", "X-Api-Key", "X-Token"}

// Redactor masks sensitive header values before they reach logs or the admin API.
type Redactor struct {
	sensitive map[string]struct{} // canonical header names
}

// NewRedactor creates a Redactor for the given header names plus DefaultSensitiveHeaders.
// Blank names are ignored.
func NewRedactor(headers []string) *Redactor {
	set := make(map[string]struct{}, len(headers)+len(DefaultSensitiveHeaders))
	for _, h := range append(append([]string(nil), DefaultSensitiveHeaders...), headers...) {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		set[http.CanonicalHeaderKey(h)] = struct{}{}
	}
	return &Redactor{sensitive: set}
}

// IsSensitive reports whether the header's value must be masked.
func (r *Redactor) IsSensitive(name string) bool {
	if _, ok := r.sensitive[http.CanonicalHeaderKey(name)]; ok {
		return true
	}
	lower := strings.ToLower(name)
	return strings.Contains(lower, "secret") || strings.Contains(lower, "token") || strings.Contains(lower, "password")
}

// Headers returns a flattened copy of h with sensitive values replaced.
func (r *Redactor) Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if r.IsSensitive(name) {
			out[name] = RedactedPlaceholder
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}
