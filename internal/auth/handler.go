package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/shared"
	"github.com/rbac-console/rbac-console/internal/view"
)

// pendingVerifyKey remembers the account awaiting verification after register.
const pendingVerifyKey = "auth_pending_verify"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder view.Responder
	sessions  *shared.SessionManager
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder view.Responder, sessions *shared.SessionManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		responder: responder,
		sessions:  sessions,
		validator: view.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Get("/verify", h.showVerify)
	r.Post("/verify", h.handleVerify)
	r.Get("/forgot-password", h.showForgotPassword)
	r.Post("/forgot-password", h.handleForgotPassword)
	r.Get("/reset-password/{token}", h.showResetPassword)
	r.Post("/reset-password/{token}", h.handleResetPassword)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	EmailOrPhone string `form:"email" validate:"required,email|localphone"`
	Password     string `form:"password" validate:"required,min=6"`
}

type loginPageData struct {
	Form     loginForm
	Errors   view.FormErrors
	Redirect string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	data := loginPageData{Errors: view.FormErrors{}, Redirect: r.URL.Query().Get("redirect")}
	h.responder.Render(w, r, http.StatusOK, "pages/auth/login.html", "Sign in", data)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	form := loginForm{
		EmailOrPhone: strings.TrimSpace(r.PostFormValue("email")),
		Password:     r.PostFormValue("password"),
	}
	redirect := r.PostFormValue("redirect")

	errs := view.Validate(h.validator, form)
	if !errs.Any() {
		if sess == nil {
			h.logger.ErrorContext(ctx, "session missing during login")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		err := h.service.SignIn(ctx, sess, form.EmailOrPhone, form.Password)
		if err == nil {
			h.responder.Redirect(w, r, authctx.SafeRedirect(redirect), shared.FlashSuccess, "Welcome back")
			return
		}
		h.logger.InfoContext(ctx, "login failed", slog.Any("error", err))
		if errors.Is(err, shared.ErrUnauthenticated) {
			errs[view.GeneralError] = "Invalid email/phone or password"
		} else {
			errs.AddAPIError(err)
		}
	}

	form.Password = ""
	data := loginPageData{Form: form, Errors: errs, Redirect: redirect}
	h.responder.Render(w, r, http.StatusBadRequest, "pages/auth/login.html", "Sign in", data)
}

type registerForm struct {
	FullName        string `form:"fullName" validate:"required,max=100"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
}

type registerPageData struct {
	Form   registerForm
	Errors view.FormErrors
}

type pendingVerification struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.responder.Render(w, r, http.StatusOK, "pages/auth/register.html", "Create account", registerPageData{Errors: view.FormErrors{}})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	form := registerForm{
		FullName:        strings.TrimSpace(r.PostFormValue("fullName")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	errs := view.Validate(h.validator, form)
	if !errs.Any() {
		res, err := h.service.api.Register(ctx, registerRequest(form))
		if err == nil {
			if sess := shared.SessionFromContext(ctx); sess != nil {
				if err := sess.SetJSON(pendingVerifyKey, pendingVerification{Email: form.Email, Token: res.Token}); err != nil {
					h.logger.WarnContext(ctx, "remember pending verification", slog.Any("error", err))
				}
			}
			msg := res.Message
			if msg == "" {
				msg = "Account created. Check your email to verify it."
			}
			h.responder.Redirect(w, r, "/auth/verify", shared.FlashSuccess, msg)
			return
		}
		errs.AddAPIError(err)
	}

	form.Password, form.ConfirmPassword = "", ""
	h.responder.Render(w, r, http.StatusBadRequest, "pages/auth/register.html", "Create account", registerPageData{Form: form, Errors: errs})
}

type verifyPageData struct {
	Email  string
	Token  string
	Errors view.FormErrors
}

func (h *Handler) showVerify(w http.ResponseWriter, r *http.Request) {
	pending := h.pending(r)
	data := verifyPageData{Email: pending.Email, Token: r.URL.Query().Get("token"), Errors: view.FormErrors{}}
	h.responder.Render(w, r, http.StatusOK, "pages/auth/verify.html", "Verify account", data)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	pending := h.pending(r)
	token := strings.TrimSpace(r.PostFormValue("token"))
	if token == "" {
		token = pending.Token
	}

	errs := view.FormErrors{}
	if token == "" {
		errs["token"] = "This field is required"
	} else if _, err := h.service.api.VerifyAccount(ctx, token); err != nil {
		errs.AddAPIError(err)
	} else {
		if sess := shared.SessionFromContext(ctx); sess != nil {
			sess.Delete(pendingVerifyKey)
		}
		h.responder.Redirect(w, r, authctx.LoginPath, shared.FlashSuccess, "Account verified. You can sign in now.")
		return
	}
	data := verifyPageData{Email: pending.Email, Token: token, Errors: errs}
	h.responder.Render(w, r, http.StatusBadRequest, "pages/auth/verify.html", "Verify account", data)
}

func (h *Handler) pending(r *http.Request) pendingVerification {
	var p pendingVerification
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		_, _ = sess.GetJSON(pendingVerifyKey, &p)
	}
	return p
}

type forgotForm struct {
	Email string `form:"email" validate:"required,email"`
}

type forgotPageData struct {
	Form   forgotForm
	Errors view.FormErrors
	Sent   bool
}

func (h *Handler) showForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.responder.Render(w, r, http.StatusOK, "pages/auth/forgot_password.html", "Forgot password", forgotPageData{Errors: view.FormErrors{}})
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := forgotForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	errs := view.Validate(h.validator, form)
	if !errs.Any() {
		_, err := h.service.api.ForgotPassword(r.Context(), forgotRequest(form))
		if err == nil {
			h.responder.Render(w, r, http.StatusOK, "pages/auth/forgot_password.html", "Forgot password", forgotPageData{Form: form, Errors: errs, Sent: true})
			return
		}
		errs.AddAPIError(err)
	}
	h.responder.Render(w, r, http.StatusBadRequest, "pages/auth/forgot_password.html", "Forgot password", forgotPageData{Form: form, Errors: errs})
}

type resetForm struct {
	NewPassword     string `form:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

type resetPageData struct {
	Token  string
	Valid  bool
	Errors view.FormErrors
}

func (h *Handler) showResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "token")
	valid := false
	res, err := h.service.api.CheckToken(ctx, token)
	switch {
	case err != nil:
		h.logger.InfoContext(ctx, "check reset token", slog.Any("error", err))
	default:
		valid = res.Data
	}
	h.responder.Render(w, r, http.StatusOK, "pages/auth/reset_password.html", "Reset password", resetPageData{Token: token, Valid: valid, Errors: view.FormErrors{}})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	token := chi.URLParam(r, "token")
	form := resetForm{NewPassword: r.PostFormValue("newPassword"), ConfirmPassword: r.PostFormValue("confirmPassword")}
	errs := view.Validate(h.validator, form)
	if !errs.Any() {
		_, err := h.service.api.ResetPasswordByToken(r.Context(), resetRequest(token, form))
		if err == nil {
			h.responder.Redirect(w, r, authctx.LoginPath, shared.FlashSuccess, "Password updated. Sign in with your new password.")
			return
		}
		errs.AddAPIError(err)
	}
	h.responder.Render(w, r, http.StatusBadRequest, "pages/auth/reset_password.html", "Reset password", resetPageData{Token: token, Valid: true, Errors: errs})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	h.service.SignOut(r.Context(), sess)
	if sess != nil {
		h.sessions.Destroy(sess)
	}
	http.Redirect(w, r, authctx.LoginPath, http.StatusSeeOther)
}
