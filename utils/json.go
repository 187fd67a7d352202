package utils

import (
	"encoding/json"
	"net/http"
)

// ParseJSON decodes a request body of at most 1MB into v.
func ParseJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
}
