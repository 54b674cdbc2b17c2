package proxy

import "net/http"

// extractAPIKey reads the client's upstream credential from the x-api-key
// header, the same header Claude clients send their Anthropic key in.
func extractAPIKey(r *http.Request) (string, error) {
	key := r.Header.Get("x-api-key")
	if key == "" {
		return "", errMissingAPIKey()
	}
	return key, nil
}

// setCORSHeaders applies a permissive CORS policy, matching a proxy meant to
// be called directly from browser-based and CLI clients alike.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "*")
}

func upstreamURL(baseURL, suffix string) string {
	return baseURL + suffix
}
