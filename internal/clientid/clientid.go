// Package clientid derives a best-effort caller identifier from proxy
// headers for rate-limiting purposes. The identifier is not verified in any
// way; it only needs to be stable per caller.
package clientid

import (
	"net"
	"net/http"
	"strings"
)

// Unknown is returned when no address information is available at all.
const Unknown = "unknown"

const (
	headerForwardedFor = "x-forwarded-for"
	headerRealIP       = "x-real-ip"
	headerCFConnecting = "cf-connecting-ip"
)

// FromRequest resolves a client identifier from a net/http request (the local
// dev server surface).
func FromRequest(r *http.Request) string {
	if r == nil {
		return Unknown
	}
	transport := ""
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		transport = host
	} else {
		transport = r.RemoteAddr
	}
	return resolve(
		r.Header.Get(headerForwardedFor),
		r.Header.Get(headerRealIP),
		r.Header.Get(headerCFConnecting),
		transport,
	)
}

// FromMap resolves a client identifier from a plain header map (the Lambda
// event surface). Lookup is case-insensitive since event headers arrive with
// whatever casing the front door used.
func FromMap(headers map[string]string, sourceIP string) string {
	return resolve(
		mapValue(headers, headerForwardedFor),
		mapValue(headers, headerRealIP),
		mapValue(headers, headerCFConnecting),
		sourceIP,
	)
}

func resolve(forwarded, realIP, cfIP, transport string) string {
	if first := firstForwarded(forwarded); first != "" {
		return first
	}
	if v := strings.TrimSpace(realIP); v != "" {
		return v
	}
	if v := strings.TrimSpace(cfIP); v != "" {
		return v
	}
	if v := strings.TrimSpace(transport); v != "" {
		return v
	}
	return Unknown
}

// firstForwarded returns the first comma-separated entry of an
// x-forwarded-for value, which is the original client as seen by the
// outermost proxy.
func firstForwarded(v string) string {
	if v == "" {
		return ""
	}
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

func mapValue(headers map[string]string, key string) string {
	if headers == nil {
		return ""
	}
	if v, ok := headers[key]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
