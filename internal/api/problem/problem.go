// Package problem writes RFC 7807 problem documents. Every error the API
// returns goes through Write, and clients show Detail verbatim.
package problem

import (
	"encoding/json"
	"net/http"
	"strings"
)

const (
	ContentType = "application/problem+json"
	TraceHeader = "X-Trace-ID"
	baseTypeURL = "https://errors.trading-backoffice.dev/"
)

type Details struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	RequestID string `json:"request_id"`
}

// Type expands a slug such as "request/already-resolved" into a type URI.
func Type(slug string) string {
	return baseTypeURL + slug
}

// Slug is the inverse of Type. It returns "" for types this service did not
// mint.
func Slug(typeURI string) string {
	slug, ok := strings.CutPrefix(typeURI, baseTypeURL)
	if !ok {
		return ""
	}
	return slug
}

func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	if title == "" {
		title = http.StatusText(status)
	}
	if problemType == "" {
		problemType = "about:blank"
	}
	var instance, requestID string
	if r != nil {
		instance = r.URL.Path
		requestID = r.Header.Get(TraceHeader)
	}
	if requestID == "" {
		requestID = w.Header().Get(TraceHeader)
	}

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Details{
		Type:      problemType,
		Title:     title,
		Status:    status,
		Detail:    detail,
		Instance:  instance,
		RequestID: requestID,
	})
}
