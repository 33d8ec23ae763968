package api

import (
	"encoding/json"
	"net/http"

	"gosip/internal/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps error codes to HTTP status codes
func statusFor(code string) int {
	switch code {
	case errors.CodeMissingColumn, errors.CodeEmptyPartition, errors.CodeNoOverlap, errors.CodeUnsupportedIsotope:
		return http.StatusUnprocessableEntity
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeConfigInvalid:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[API] %v", err)
	} else {
		s.logger.Debug("[API] %s: %v", code, err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "failed to encode response: " + err.Error(), Code: errors.CodeInternalError})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func decodeJSON(r *http.Request, w http.ResponseWriter, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.InvalidInput("malformed request body: " + err.Error())
	}
	return nil
}
