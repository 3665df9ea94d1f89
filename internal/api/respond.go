package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/eduparse/internal/extract"
	"github.com/dgallion1/eduparse/internal/lookup"
)

type errorBody struct {
	Status      string   `json:"status"`
	Detail      string   `json:"detail"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, errorBody{Status: "error", Detail: msg})
}

// statusFor maps an extraction error onto an HTTP status code.
func statusFor(err error) int {
	var (
		uc *extract.UnsupportedCombination
		ue *lookup.UnavailableError
	)
	switch {
	case errors.As(err, &uc):
		return http.StatusBadRequest
	case errors.As(err, &ue):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	return name
}
