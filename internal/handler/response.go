package handler

import (
	"encoding/json"
	"net/http"

	"auth-gateway/internal/domain"
	"auth-gateway/pkg/errors"
	"auth-gateway/pkg/logger"
)

// maxBodyBytes bounds request bodies; credentials are small
const maxBodyBytes = 64 << 10

// Envelope is the JSON shape of every auth response
type Envelope struct {
	OK           bool                   `json:"ok"`
	Message      string                 `json:"message"`
	User         *domain.Account        `json:"user,omitempty"`
	CustomToken  string                 `json:"customToken,omitempty"`
	IsNewAccount *bool                  `json:"isNewAccount,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// successEnvelope packs a login result. isNewAccount is only reported by the
// social routes.
func successEnvelope(message string, result *domain.AuthResult, withIsNew bool) Envelope {
	env := Envelope{
		OK:          true,
		Message:     message,
		User:        result.User,
		CustomToken: result.CustomToken,
	}
	if withIsNew {
		isNew := result.IsNewAccount
		env.IsNewAccount = &isNew
	}
	return env
}

// writeErrorResponse writes the failure envelope. Collaborator error text is
// appended only when exposeDetails is set.
func WriteError(w http.ResponseWriter, message string, err error, exposeDetails bool, log *logger.Logger) {
	status := http.StatusInternalServerError
	env := Envelope{OK: false, Message: message, Error: "internal server error"}

	if appErr, ok := errors.FromError(err); ok {
		status = errors.StatusCode(appErr)
		env.Error = appErr.Message
		if appErr.Type == errors.ErrorTypeValidation {
			env.Details = appErr.Details
		}
		if exposeDetails && appErr.Internal != nil {
			env.Error = appErr.Message + ": " + appErr.Internal.Error()
		}
	} else if exposeDetails && err != nil {
		env.Error = err.Error()
	}

	entry := log.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("Request error")
	} else {
		entry.Warn("Request rejected")
	}

	writeJSON(w, status, env, log)
}

// decodeJSON reads a bounded JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return errors.NewValidationError("invalid JSON body", nil)
	}
	return nil
}
