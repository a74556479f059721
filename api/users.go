package api

import (
	"net/http"
	"strings"

	"github.com/billbatista/zensplit/balance"
	"github.com/billbatista/zensplit/eventlogger"
	"github.com/billbatista/zensplit/middleware"
	"github.com/billbatista/zensplit/session"
	"github.com/billbatista/zensplit/user"
	"github.com/google/uuid"
)

type registerRequest struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	UPI      string `json:"upi" validate:"max=100"`
}

func (req *registerRequest) normalize() {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = balance.NormalizeEmail(req.Email)
	req.UPI = strings.TrimSpace(req.UPI)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (req *loginRequest) normalize() {
	req.Email = balance.NormalizeEmail(req.Email)
}

type otpRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (req *otpRequest) normalize() {
	req.Email = balance.NormalizeEmail(req.Email)
}

type otpVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric"`
}

func (req *otpVerifyRequest) normalize() {
	req.Email = balance.NormalizeEmail(req.Email)
	req.Code = strings.TrimSpace(req.Code)
}

type profileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	UPI  string `json:"upi" validate:"max=100"`
}

func (req *profileRequest) normalize() {
	req.Name = strings.TrimSpace(req.Name)
	req.UPI = strings.TrimSpace(req.UPI)
}

type profileResponse struct {
	*user.User
	DisplayName string `json:"display_name"`
}

func newProfileResponse(u *user.User) profileResponse {
	return profileResponse{User: u, DisplayName: u.DisplayName()}
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	u, err := h.users.Register(r.Context(), user.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		UPI:      req.UPI,
	})
	if err != nil {
		h.fail(w, r, err, "register user")
		return
	}

	if !h.startSession(w, r, u.ID) {
		return
	}
	h.publish(r, eventlogger.TypeUserRegistered, map[string]string{
		"user_id": u.ID.String(),
		"email":   u.Email,
	})
	respondJSON(w, http.StatusCreated, u)
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, err, "look up user")
		return
	}
	if u == nil || h.users.VerifyPassword(u.PasswordHash, req.Password) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if !h.startSession(w, r, u.ID) {
		return
	}
	h.publish(r, eventlogger.TypeUserLoggedIn, map[string]string{
		"user_id": u.ID.String(),
		"method":  "password",
	})
	respondJSON(w, http.StatusOK, u)
}

// requestOTP sends a one-time login code to a registered email.
func (h *Handlers) requestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	email := req.Email

	u, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		h.fail(w, r, err, "look up user")
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "no account found with this email")
		return
	}

	code, err := h.otp.Issue(email)
	if err != nil {
		h.fail(w, r, err, "issue otp")
		return
	}
	if err := h.sender.Send(r.Context(), email, code); err != nil {
		h.fail(w, r, err, "send otp")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"message": "otp sent"})
}

func (h *Handlers) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	if err := h.otp.Verify(req.Email, req.Code); err != nil {
		h.fail(w, r, err, "verify otp")
		return
	}

	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, err, "look up user")
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "no account found with this email")
		return
	}

	if !h.startSession(w, r, u.ID) {
		return
	}
	h.publish(r, eventlogger.TypeUserLoggedIn, map[string]string{
		"user_id": u.ID.String(),
		"method":  "otp",
	})
	respondJSON(w, http.StatusOK, u)
}

// logout ends the current session, or every session of the user when
// ?everywhere=true.
func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("everywhere") == "true" {
		userID, _ := middleware.GetUserID(r.Context())
		if err := h.sessions.DeleteByUserID(r.Context(), userID); err != nil {
			h.fail(w, r, err, "delete sessions")
			return
		}
	} else if cookie, err := r.Cookie(session.CookieName); err == nil {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.logger.ErrorContext(r.Context(), "failed to delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "load profile")
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, newProfileResponse(u))
}

func (h *Handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.users.UpdateProfile(r.Context(), userID, req.Name, req.UPI); err != nil {
		h.fail(w, r, err, "update profile")
		return
	}
	h.publish(r, eventlogger.TypeUserProfileUpdate, map[string]string{
		"user_id": userID.String(),
	})

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "load profile")
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, newProfileResponse(u))
}

// startSession creates a session for userID and sets its cookie. It writes
// the error response itself and reports whether the caller may continue.
func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, userID uuid.UUID) bool {
	sess, err := h.sessions.Create(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "create session")
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}
