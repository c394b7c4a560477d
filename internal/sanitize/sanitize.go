// Package sanitize redacts credentials and tokens from values before they
// reach a log sink. Inputs are never modified; redacted copies are returned.
package sanitize

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const Marker = "[REDACTED]"

var headerKeys = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"set-cookie":    {},
	"x-api-key":     {},
	"token":         {},
	"api-key":       {},
	"auth":          {},
	"session":       {},
	"csrf":          {},
}

var sensitiveFieldParts = []string{
	"token", "api_key", "apikey", "key", "secret", "password",
	"auth", "authorization", "session", "cookie", "credential",
}

const tokenChars = `[A-Za-z0-9_\-.~+/=]`

var (
	reAssignment = regexp.MustCompile(`(?i)\b([A-Za-z0-9_\-]*(?:token|api_key|apikey|key|secret|password|auth|authorization|session|cookie|credential)[A-Za-z0-9_\-]*)(["']?\s*[=:]\s*["']?)(` + tokenChars + `{20,})`)
	reBearer     = regexp.MustCompile(`(?i)\b(Bearer)\s+` + tokenChars + `+`)
	reBasic      = regexp.MustCompile(`(?i)\b(Basic)\s+` + tokenChars + `+`)
	reURLCreds   = regexp.MustCompile(`([A-Za-z][A-Za-z0-9+.\-]*://[^:/\s@]+:)([^@\s/]+)(@)`)
)

// String redacts token assignments, Bearer/Basic credentials and URL
// passwords from free text.
func String(s string) string {
	if s == "" {
		return s
	}
	s = reAssignment.ReplaceAllString(s, "${1}${2}"+Marker)
	s = reBearer.ReplaceAllString(s, "${1} "+Marker)
	s = reBasic.ReplaceAllString(s, "${1} "+Marker)
	s = reURLCreds.ReplaceAllString(s, "${1}"+Marker+"${3}")
	return s
}

// IsHeaderKey reports whether a header name carries credentials.
func IsHeaderKey(key string) bool {
	_, ok := headerKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// IsSensitiveField reports whether a mapping key names a secret.
func IsSensitiveField(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveFieldParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// Headers redacts credential headers and sanitizes the remaining values.
func Headers(headers map[string]any) map[string]any {
	out := make(map[string]any, len(headers))
	for k, v := range headers {
		if IsHeaderKey(k) {
			out[k] = Marker
			continue
		}
		out[k] = Value(v)
	}
	return out
}

// HTTPHeader is Headers for net/http header maps.
func HTTPHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, values := range h {
		if IsHeaderKey(k) {
			out[k] = []string{Marker}
			continue
		}
		cleaned := make([]string, len(values))
		for i, v := range values {
			cleaned[i] = String(v)
		}
		out[k] = cleaned
	}
	return out
}

// Value returns a redacted copy of v with the same shape. Unsupported types
// are redacted through their string form.
func Value(v any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = Marker
		}
	}()

	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return String(val)
	case []byte:
		return []byte(String(string(val)))
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return val
	case map[string]any:
		return mapping(val)
	case map[string]string:
		m := make(map[string]string, len(val))
		for k, s := range val {
			if IsSensitiveField(k) {
				m[k] = Marker
				continue
			}
			m[k] = String(s)
		}
		return m
	case http.Header:
		return HTTPHeader(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = Value(item)
		}
		return items
	case []string:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = String(item)
		}
		return items
	case error:
		return String(val.Error())
	case fmt.Stringer:
		return String(val.String())
	default:
		return String(fmt.Sprint(val))
	}
}

func mapping(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if strings.EqualFold(k, "headers") {
			switch h := v.(type) {
			case map[string]any:
				out[k] = Headers(h)
				continue
			case map[string]string:
				converted := make(map[string]any, len(h))
				for hk, hv := range h {
					converted[hk] = hv
				}
				out[k] = Headers(converted)
				continue
			case http.Header:
				out[k] = HTTPHeader(h)
				continue
			}
		}
		if IsSensitiveField(k) {
			out[k] = Marker
			continue
		}
		out[k] = Value(v)
	}
	return out
}
