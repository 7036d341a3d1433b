package common

import (
	"net/http"
	"strings"
)

// WriteRawJSON writes an already-serialized JSON payload verbatim
func WriteRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// RawQueryParam returns the still-percent-encoded value of a query
// parameter. Go's url.Values decodes values (and silently drops pairs whose
// encoding is malformed), but the pipeline owns decoding so that a bad
// encoding is reported as such rather than as a missing parameter.
func RawQueryParam(rawQuery, key string) (string, bool) {
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if k == key {
			return v, true
		}
	}
	return "", false
}
