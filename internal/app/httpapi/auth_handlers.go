package httpapi

import (
	"net/http"

	"github.com/campusvote/campusvote/internal/domain"
)

type registerRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	StudentNo string `json:"student_no"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) || !a.validateBody(w, req) {
		return
	}

	principal, err := a.identity.Register(r.Context(), req.Name, req.Email, req.Password, req.StudentNo)
	if err != nil {
		a.logger.Warn("register refused", "err", err, "email", req.Email)
		respondError(w, err)
		return
	}

	a.logger.Info("principal registered", "principal", principal.ID)
	respondJSON(w, http.StatusCreated, principal)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string           `json:"token"`
	Principal domain.Principal `json:"principal"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) || !a.validateBody(w, req) {
		return
	}

	token, principal, err := a.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.logger.Warn("login refused", "err", err, "email", req.Email)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{Token: token, Principal: principal})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.identity.Logout(r.Context(), bearerToken(r)); err != nil {
		a.logger.Error("logout", "err", err)
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
