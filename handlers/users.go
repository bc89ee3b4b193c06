package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"movieverse/models"
	"movieverse/services/users"
)

type usersService interface {
	Signup(name, email, password string) (models.User, string, error)
	Login(email, password string) (models.User, string, error)
	Get(id string) (models.User, bool)
}

var _ usersService = (*users.Service)(nil)

type UsersHandler struct {
	Service usersService

	// LoginHook runs after a successful login, before the response is
	// written. Used to kick off a sync replay for the user.
	LoginHook func(userID string)
}

func NewUsersHandler(service usersService) *UsersHandler {
	return &UsersHandler{Service: service}
}

func (h *UsersHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.Service.Signup(body.Name, body.Email, body.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, users.ErrNameRequired),
			errors.Is(err, users.ErrNameTooShort),
			errors.Is(err, users.ErrEmailRequired),
			errors.Is(err, users.ErrEmailInvalid),
			errors.Is(err, users.ErrPasswordRequired),
			errors.Is(err, users.ErrPasswordTooShort):
			status = http.StatusBadRequest
		case errors.Is(err, users.ErrEmailTaken):
			status = http.StatusConflict
		}
		writeFailure(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.Service.Login(body.Email, body.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			writeFailure(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.LoginHook != nil {
		h.LoginHook(user.ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
		"token":   token,
	})
}
