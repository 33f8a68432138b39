package domain

import (
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"
)

// clientManagedHeaders are framing and hop-by-hop headers that net/http writes
// itself. A configured value would never reach the webhook, so they are refused.
var clientManagedHeaders = map[string]struct{}{
	"Connection":        {},
	"Content-Length":    {},
	"Keep-Alive":        {},
	"Proxy-Connection":  {},
	"Te":                {},
	"Trailer":           {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
}

// NotifierConfig describes the webhook target. It is supplied once at startup.
type NotifierConfig struct {
	URL     string            `json:"url" yaml:"url"`
	Body    *string           `json:"body,omitempty" yaml:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// PreparedNotifier is a validated NotifierConfig. It is immutable and safe for concurrent use.
type PreparedNotifier struct {
	url     string
	header  http.Header
	body    []byte
	hasBody bool
}

// PrepareNotifier validates cfg and returns the prepared form used by the middleware.
// The first violation is returned as a *ConfigError; nothing is retained on failure.
func PrepareNotifier(cfg NotifierConfig) (*PreparedNotifier, error) {
	if err := validateWebhookURL(cfg.URL); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cfg.Headers))
	for name := range cfg.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(http.Header, len(names))
	for _, name := range names {
		value := cfg.Headers[name]
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, &ConfigError{Err: ErrInvalidHeader, Header: name, Reason: "malformed header name"}
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, &ConfigError{Err: ErrInvalidHeader, Header: name, Reason: "malformed header value"}
		}
		key := http.CanonicalHeaderKey(name)
		if _, managed := clientManagedHeaders[key]; managed {
			return nil, &ConfigError{Err: ErrInvalidHeader, Header: name, Reason: "header is managed by the HTTP client"}
		}
		if key == "Host" && !httpguts.ValidHostHeader(value) {
			return nil, &ConfigError{Err: ErrInvalidHeader, Header: name, Reason: "malformed host"}
		}
		if _, dup := header[key]; dup {
			return nil, &ConfigError{Err: ErrInvalidHeader, Header: name, Reason: "duplicate header name"}
		}
		header[key] = []string{value}
	}

	p := &PreparedNotifier{url: cfg.URL, header: header}
	if cfg.Body != nil {
		p.body = []byte(*cfg.Body)
		p.hasBody = true
	}
	return p, nil
}

func validateWebhookURL(raw string) error {
	if raw == "" {
		return &ConfigError{Err: ErrInvalidURL, Reason: "url is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &ConfigError{Err: ErrInvalidURL, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Err: ErrInvalidURL, Reason: "only http and https schemes are supported"}
	}
	if u.Host == "" {
		return &ConfigError{Err: ErrInvalidURL, Reason: "host is required"}
	}
	return nil
}

// URL returns the webhook target.
func (p *PreparedNotifier) URL() string { return p.url }

// Header returns a copy of the prepared header set.
func (p *PreparedNotifier) Header() http.Header { return p.header.Clone() }

// Body returns the static body and whether one was configured.
func (p *PreparedNotifier) Body() (string, bool) { return string(p.body), p.hasBody }

// NewNotification clones the prepared config into a per-request notification.
// The request is only read for log correlation; nothing from it is sent to the webhook.
func (p *PreparedNotifier) NewNotification(r *http.Request, requestID string) Notification {
	n := Notification{
		ID:          uuid.NewString(),
		URL:         p.url,
		Header:      p.header.Clone(),
		HasBody:     p.hasBody,
		RequestID:   requestID,
		ScheduledAt: time.Now().UTC(),
	}
	if p.hasBody {
		n.Body = append([]byte(nil), p.body...)
	}
	if r != nil {
		n.RequestMethod = r.Method
		if r.URL != nil {
			n.RequestPath = r.URL.Path
		}
	}
	return n
}
