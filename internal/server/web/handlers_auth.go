package web

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/nimbly/internal/errs"
	"github.com/and161185/nimbly/internal/service"
)

// Auth page modes.
const (
	modeSignIn = "signin"
	modeSignUp = "signup"
	modeMagic  = "magic"
)

type authView struct {
	Mode   string
	Email  string
	Error  string
	Notice string
}

func modeFrom(r *http.Request) string {
	m := r.FormValue("mode")
	switch m {
	case modeSignUp, modeMagic:
		return m
	}
	return modeSignIn
}

func (s *Server) renderAuth(w http.ResponseWriter, r *http.Request, status int, v authView) {
	title := "Sign in"
	switch v.Mode {
	case modeSignUp:
		title = "Create account"
	case modeMagic:
		title = "Email me a link"
	}
	s.render(w, r, status, "auth", title, v)
}

func (s *Server) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	if browserFrom(r.Context()).validator.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.renderAuth(w, r, http.StatusOK, authView{Mode: modeFrom(r)})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	_, err := browserFrom(r.Context()).auth.SignIn(r.Context(), email, r.PostFormValue("password"))
	s.finishAuth(w, r, authView{Mode: modeSignIn, Email: email}, err)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	_, err := browserFrom(r.Context()).auth.SignUp(r.Context(), email,
		r.PostFormValue("password"), r.PostFormValue("confirm"))
	s.finishAuth(w, r, authView{Mode: modeSignUp, Email: email}, err)
}

func (s *Server) handleMagicLink(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	res, err := browserFrom(r.Context()).auth.RequestMagicLink(r.Context(), email)
	v := authView{Mode: modeMagic, Email: email}
	if err != nil {
		v.Error = service.UserMessage(err)
		s.renderAuth(w, r, authStatus(err), v)
		return
	}
	v.Notice = res.Message
	if v.Notice == "" {
		v.Notice = "Check your email for a sign-in link."
	}
	s.renderAuth(w, r, http.StatusOK, v)
}

// handleVerify completes a magic link. Failures stay on the page so the user
// can read the reason; only success redirects.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	_, err := browserFrom(r.Context()).auth.VerifyMagicLink(r.Context(), r.URL.Query().Get("token"))
	s.finishAuth(w, r, authView{Mode: modeMagic}, err)
}

func (s *Server) finishAuth(w http.ResponseWriter, r *http.Request, v authView, err error) {
	if err != nil {
		s.log.Debug("auth rejected", zap.String("mode", v.Mode), zap.Error(err))
		v.Error = service.UserMessage(err)
		s.renderAuth(w, r, authStatus(err), v)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, errs.ErrTransport):
		return http.StatusBadGateway
	}
	return http.StatusOK
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := browserFrom(r.Context()).auth.SignOut(r.Context()); err != nil {
		s.log.Warn("sign out", zap.Error(err))
	}
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
}
