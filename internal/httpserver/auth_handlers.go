package httpserver

import (
	"net/http"
	"strings"

	authdomain "backoffice/boilerplate/internal/domain/auth"
	authusecase "backoffice/boilerplate/internal/usecase/auth"
)

func (s *Server) registerAuthRoutes() {
	limited := s.authLimiter.middleware
	authenticated := s.authMiddleware

	s.router.Handle(s.route(http.MethodPost, "/auth/register"), limited(http.HandlerFunc(s.handleRegister)))
	s.router.Handle(s.route(http.MethodPost, "/auth/login"), limited(http.HandlerFunc(s.handleLogin)))
	s.router.Handle(s.route(http.MethodPost, "/auth/refresh-token"), limited(http.HandlerFunc(s.handleRefreshToken)))
	s.router.Handle(s.route(http.MethodPost, "/auth/reset-email"), limited(http.HandlerFunc(s.handleResetEmail)))
	s.router.Handle(s.route(http.MethodPost, "/auth/reset-password"), limited(http.HandlerFunc(s.handleResetPassword)))
	s.router.Handle(s.route(http.MethodPost, "/auth/logout"), limited(authenticated(http.HandlerFunc(s.handleLogout))))
	s.router.Handle(s.route(http.MethodGet, "/auth/me"), authenticated(http.HandlerFunc(s.handleMe)))
	s.router.Handle(s.route(http.MethodPost, "/auth/change-password"), limited(authenticated(http.HandlerFunc(s.handleChangePassword))))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload authusecase.RegisterInput
	if err := decodeJSON(w, r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.authService.Register(r.Context(), payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, messageOK, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload authusecase.LoginInput
	if err := decodeJSON(w, r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.authService.Login(r.Context(), payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, "User logged in successfully", result)
}

// handleRefreshToken accepts the refresh token in the body or as a bearer header.
func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}
	token := strings.TrimSpace(payload.Token)
	if token == "" {
		token = extractBearerToken(r.Header.Get("Authorization"))
	}

	accessToken, err := s.authService.RefreshToken(r.Context(), token)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, "New access token generated", map[string]string{"accessToken": accessToken})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		s.fail(w, r, authdomain.ErrUnauthorized)
		return
	}
	if err := s.authService.Logout(r.Context(), claims); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, "Logged out successfully", struct{}{})
}

func (s *Server) handleResetEmail(w http.ResponseWriter, r *http.Request) {
	var payload authusecase.ResetEmailInput
	if err := decodeJSON(w, r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.authService.ResetPasswordRequest(r.Context(), payload); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, "Verification code sent to email", struct{}{})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload authusecase.ResetPasswordInput
	if err := decodeJSON(w, r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.authService.ResetPassword(r.Context(), payload); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, "Password reset successful.", struct{}{})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		s.fail(w, r, authdomain.ErrUnauthorized)
		return
	}
	user, err := s.authService.Me(r.Context(), claims)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, messageOK, user)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		s.fail(w, r, authdomain.ErrUnauthorized)
		return
	}

	var payload authusecase.ChangePasswordInput
	if err := decodeJSON(w, r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.authService.ChangePassword(r.Context(), claims, payload); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, "Password changed successfully", struct{}{})
}
