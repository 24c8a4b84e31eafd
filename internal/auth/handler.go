// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/propertyxchange/backend/internal/core"
	"github.com/propertyxchange/backend/internal/middleware"
)

type Handler struct {
	service     *Service
	cookies     *CookieWriter
	tokenInBody bool
	validator   *validator.Validate
}

func NewHandler(service *Service, cookies *CookieWriter, tokenInBody bool) *Handler {
	return &Handler{
		service:     service,
		cookies:     cookies,
		tokenInBody: tokenInBody,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the auth endpoints. limiter guards the routes that
// send mail or check passwords.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, limiter func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter)
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/resend-verification-email", h.ResendVerification)
		})

		r.Post("/verify-email", h.VerifyEmail)
		r.Post("/logout", h.Logout)
		r.Post("/reset-password/{token}", h.ResetPassword)

		r.With(authenticator).Get("/check-auth", h.CheckAuth)
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Resent {
		core.OK(w, AuthResponse{
			Message: "Verification email resent",
			User:    toUserResponse(result.User),
		})
		return
	}

	h.cookies.Write(w, r, result.Session.Token)
	core.Created(w, h.authResponse("User created successfully", result.Session))
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		writeError(w, ErrInvalidVerificationCode)
		return
	}

	user, err := h.service.VerifyEmail(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, AuthResponse{
		Message: "Email verified successfully",
		User:    toUserResponse(user),
	})
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "Verification email resent"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.Write(w, r, session.Token)
	core.OK(w, h.authResponse("Logged in successfully", session))
}

// Logout only drops the client's copy of the credential. There is no
// server-side revocation, so a captured token stays valid until it expires.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w, r)
	core.OK(w, MessageResponse{Message: "Logged out successfully"})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "Password reset link sent to your email"})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), token, req.Password); err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "Password reset successful"})
}

func (h *Handler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.CheckAuth(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, CurrentUserResponse{User: toUserResponse(user)})
}

func (h *Handler) authResponse(message string, session *Session) AuthResponse {
	resp := AuthResponse{
		Message: message,
		User:    toUserResponse(session.User),
	}
	if h.tokenInBody {
		resp.Token = session.Token
	}
	return resp
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmailExists):
		core.JSONError(w, core.ConflictError("User already exists and verified"))
	case errors.Is(err, ErrUsernameTaken):
		core.JSONError(w, core.ConflictError("Username already taken"))
	case errors.Is(err, ErrInvalidCredentials):
		core.JSONError(w, core.NewAppError(
			err,
			"Invalid Credentials",
			http.StatusBadRequest,
			"INVALID_CREDENTIALS",
		))
	case errors.Is(err, ErrEmailNotVerified):
		core.JSONError(w, core.NewAppError(
			err,
			"Email not verified",
			http.StatusBadRequest,
			"EMAIL_NOT_VERIFIED",
		))
	case errors.Is(err, ErrAccountBanned):
		core.JSONError(w, core.UserBannedError())
	case errors.Is(err, ErrAccountSuspended):
		core.JSONError(w, core.UserSuspendedError())
	case errors.Is(err, ErrTooManyAttempts):
		core.JSONError(w, core.TooManyAttemptsError(
			"Too many failed login attempts, try again later",
		))
	case errors.Is(err, ErrInvalidVerificationCode):
		core.BadRequest(w, "Invalid or expired verification code")
	case errors.Is(err, ErrVerificationNotPending):
		core.BadRequest(w, "User not found or already verified")
	case errors.Is(err, ErrUserNotFound):
		core.BadRequest(w, "User not found")
	case errors.Is(err, ErrInvalidResetToken):
		core.BadRequest(w, "Invalid or expired reset token")
	case errors.Is(err, core.ErrUnauthorized):
		core.Unauthorized(w, "")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	default:
		core.InternalServerError(w, err)
	}
}
