package httpapi

import (
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

type userBody struct {
	User goSession.User `json:"user"`
}

type loginBody struct {
	Message string         `json:"message"`
	User    goSession.User `json:"user"`
}

type statusBody struct {
	Authenticated bool            `json:"authenticated"`
	User          *goSession.User `json:"user,omitempty"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req goSession.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", badJSONMessage)
		return
	}

	u, err := a.engine.Login(r.Context(), req)
	switch {
	case errors.Is(err, goSession.ErrMissingIdentity), errors.Is(err, goSession.ErrMissingCredential):
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	case err != nil:
		internalError(w, r, err, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, loginBody{Message: "Login successful", User: *u})
}

// logout answers 200 whether or not a session existed.
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Logout(r.Context()); err != nil {
		internalError(w, r, err, "logout failed")
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Logout successful"})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	u, ok := goSession.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, userBody{User: u})
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	u, err := a.engine.WhoAmI(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, statusBody{})
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Authenticated: true, User: u})
}

type healthBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Env     string `json:"env"`
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Status: "OK", Message: "Server is running", Env: a.engine.Environment()})
}
