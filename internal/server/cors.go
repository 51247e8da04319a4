package server

import (
	"net/http"
	"slices"
	"strings"
)

// setCORSHeaders answers allowed origins. Preflight requests also get the
// allowed methods and the requested headers back.
func setCORSHeaders(w http.ResponseWriter, r *http.Request, origins []string) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	hdr := w.Header()
	switch {
	case slices.Contains(origins, "*"):
		hdr.Set("Access-Control-Allow-Origin", "*")
	case slices.Contains(origins, origin):
		hdr.Set("Access-Control-Allow-Origin", origin)
		hdr.Add("Vary", "Origin")
	default:
		return
	}
	if r.Method != http.MethodOptions {
		return
	}
	hdr.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
		hdr.Set("Access-Control-Allow-Headers", requested)
	}
}

func acceptsHTML(accept string) bool {
	for part := range strings.SplitSeq(accept, ",") {
		mt := strings.TrimSpace(part)
		if strings.HasPrefix(mt, "text/html") || strings.HasPrefix(mt, "*/*") {
			return true
		}
	}
	return false
}
