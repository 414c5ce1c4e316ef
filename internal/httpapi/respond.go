package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MrEthical07/goSession/middleware"
	"github.com/go-logr/logr"
)

const maxBodyBytes = 1 << 20

const badJSONMessage = "Invalid JSON body"

var errBadJSON = errors.New("invalid JSON body")

// envelope is the response shape of the feature and household endpoints.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	UserID  string `json:"userId,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func success(data any, message string) envelope {
	return envelope{Success: true, Data: data, Message: message}
}

func counted(data any, n int) envelope {
	return envelope{Success: true, Data: data, Count: &n}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	middleware.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, errText, message string) {
	writeJSON(w, status, middleware.ErrorBody{Error: errText, Message: message})
}

func routeNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Route not found", "")
}

func internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	logr.FromContextOrDiscard(r.Context()).Error(err, msg)
	middleware.WriteInternalError(w)
}

// decodeJSON reads a JSON object body into v. An empty body leaves v
// unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errBadJSON
	}
	return nil
}
