package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/shared"
)

// API is the part of the remote API the sign-in flows use.
type API interface {
	Login(ctx context.Context, in apiclient.LoginRequest) (*apiclient.LoginResponse, shared.Tokens, error)
	Register(ctx context.Context, in apiclient.RegisterRequest) (*apiclient.RegisterResponse, error)
	VerifyAccount(ctx context.Context, token string) (*apiclient.MessageResponse, error)
	ForgotPassword(ctx context.Context, in apiclient.ForgotPasswordRequest) (*apiclient.ForgotPasswordResponse, error)
	CheckToken(ctx context.Context, token string) (*apiclient.CheckTokenResponse, error)
	ResetPasswordByToken(ctx context.Context, in apiclient.ResetPasswordByTokenRequest) (*apiclient.MessageResponse, error)
	Logout(ctx context.Context) error
	GetProfile(ctx context.Context) (*apiclient.Profile, error)
}

// ErrNoTokens is returned when a successful login carried no tokens.
var ErrNoTokens = errors.New("login response carried no tokens")

// Service binds API sign-in results to browser sessions.
type Service struct {
	api     API
	tokens  authctx.TokenStore
	keepers *authctx.Keepers
	audit   shared.AuditSink
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewService constructs a Service. keepers and audit may be nil.
func NewService(api API, tokens authctx.TokenStore, keepers *authctx.Keepers, audit shared.AuditSink, clock clockwork.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, tokens: tokens, keepers: keepers, audit: audit, clock: clock, logger: logger}
}

// SignIn logs in and attaches the issued tokens to sess under a fresh id.
// A failed profile fetch is not fatal; the next request bootstraps it. The
// refresher is left to the auth middleware because the session record only
// exists once the response commits it.
func (s *Service) SignIn(ctx context.Context, sess *shared.Session, emailOrPhone, password string) error {
	res, tokens, err := s.api.Login(ctx, apiclient.LoginRequest{EmailOrPhone: emailOrPhone, Password: password, OS: "web"})
	if err != nil {
		return err
	}
	if tokens.Empty() {
		return ErrNoTokens
	}

	sess.Regenerate()
	if err := s.tokens.Save(ctx, sess.ID, tokens); err != nil {
		return err
	}
	profile, err := s.api.GetProfile(shared.ContextWithTokens(ctx, tokens))
	if err != nil {
		s.logger.WarnContext(ctx, "load profile after login", slog.Any("error", err))
	} else if err := authctx.StoreProfile(sess, profile, s.clock.Now()); err != nil {
		s.logger.WarnContext(ctx, "store profile after login", slog.Any("error", err))
	}
	userID := res.User.ID
	if profile != nil {
		userID = profile.User.ID
	}
	s.record(ctx, userID, "auth.login")
	return nil
}

// SignOut revokes the API tokens in ctx and forgets them. The caller
// destroys the session itself.
func (s *Service) SignOut(ctx context.Context, sess *shared.Session) {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.WarnContext(ctx, "api logout", slog.Any("error", err))
	}
	if sess == nil {
		return
	}
	userID := sess.User()
	if err := s.tokens.Delete(ctx, sess.ID); err != nil {
		s.logger.WarnContext(ctx, "delete api tokens", slog.Any("error", err))
	}
	if s.keepers != nil {
		s.keepers.Stop(sess.ID)
	}
	authctx.ClearProfile(sess)
	s.record(ctx, userID, "auth.logout")
}

func (s *Service) record(ctx context.Context, userID, action string) {
	if s.audit == nil || userID == "" {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{ActorID: userID, Action: action, Entity: "session", EntityID: userID, At: s.clock.Now()})
	if err != nil {
		s.logger.WarnContext(ctx, "audit", slog.String("action", action), slog.Any("error", err))
	}
}
