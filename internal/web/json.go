package web

import (
	"encoding/json"
	"net/http"
)

// ErrorJSON is the body of a failed API request.
type ErrorJSON struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	body, _ := json.Marshal(ErrorJSON{Error: msg})
	writeJSON(w, code, body)
}
