package apiclient

import (
	"context"
	"net/http"

	"github.com/rbac-console/rbac-console/internal/capability"
	"github.com/rbac-console/rbac-console/internal/shared"
)

// ForgotPasswordToken asks the API to mail a reset link rather than a code.
const ForgotPasswordToken = "FORGOT_PASSWORD_TYPE_TOKEN"

// UserInfo is the public part of a user.
type UserInfo struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Address  string `json:"address,omitempty"`
	Birthday string `json:"birthday,omitempty"`
}

// Scope is a grant restricted to specific resource data.
type Scope struct {
	Resource     string            `json:"resource"`
	ResourceData map[string]string `json:"resourceData,omitempty"`
	Action       string            `json:"action"`
}

// Profile is the authenticated user with their roles and grants.
type Profile struct {
	User        UserInfo           `json:"user"`
	Roles       []string           `json:"roles"`
	Permissions []capability.Grant `json:"permissions"`
	Scopes      []Scope            `json:"scopes"`
}

type profileResponse struct {
	Profile
	Message string `json:"message"`
}

// LoginRequest signs in with email or phone.
type LoginRequest struct {
	EmailOrPhone string `json:"emailOrPhone"`
	Password     string `json:"password"`
	OS           string `json:"os,omitempty"`
}

// LoginResponse carries the issued tokens.
type LoginResponse struct {
	User         UserInfo `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	Message      string   `json:"message"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email           string `json:"email"`
	FullName        string `json:"fullName"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// RegisterResponse is returned by Register.
type RegisterResponse struct {
	User    UserInfo `json:"user"`
	Token   string   `json:"token"`
	Message string   `json:"message"`
}

// ForgotPasswordRequest starts the reset flow.
type ForgotPasswordRequest struct {
	Email  string `json:"email"`
	OS     string `json:"os,omitempty"`
	Method string `json:"method,omitempty"`
}

// ForgotPasswordResponse is returned by ForgotPassword.
type ForgotPasswordResponse struct {
	User    UserInfo `json:"user"`
	Token   string   `json:"token"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
}

// CheckTokenResponse reports whether a reset token is still valid.
type CheckTokenResponse struct {
	Data    bool   `json:"data"`
	Message string `json:"message"`
}

// CheckCodeResponse reports whether a reset code is still valid.
type CheckCodeResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// ResetPasswordByTokenRequest completes the emailed-link flow.
type ResetPasswordByTokenRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ResetPasswordByCodeRequest completes the emailed-code flow.
type ResetPasswordByCodeRequest struct {
	Code            string `json:"code"`
	Email           string `json:"email"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// MessageResponse is the body of calls that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Message      string `json:"message"`
}

// Login signs in. The returned tokens fall back to Set-Cookie values when the
// body omits them.
func (c *Client) Login(ctx context.Context, in LoginRequest) (*LoginResponse, shared.Tokens, error) {
	res, err := sendWithCookies[LoginResponse](ctx, c, call{op: "auth.login", method: http.MethodPost, route: "/auth/login", body: in})
	if err != nil {
		return nil, shared.Tokens{}, err
	}
	tokens := tokensFrom(res.value.AccessToken, res.value.RefreshToken, res.cookies)
	return res.value, tokens, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*RegisterResponse, error) {
	return send[RegisterResponse](ctx, c, call{op: "auth.register", method: http.MethodPost, route: "/auth/register", body: in})
}

// ForgotPassword always requests the token method.
func (c *Client) ForgotPassword(ctx context.Context, in ForgotPasswordRequest) (*ForgotPasswordResponse, error) {
	in.Method = ForgotPasswordToken
	return send[ForgotPasswordResponse](ctx, c, call{op: "auth.forgot_password", method: http.MethodPost, route: "/auth/forgot-password", body: in})
}

// CheckCode validates a reset code for email.
func (c *Client) CheckCode(ctx context.Context, code, email string) (*CheckCodeResponse, error) {
	return send[CheckCodeResponse](ctx, c, call{
		op: "auth.check_code", method: http.MethodGet, route: "/auth/check-code/{code}/{email}",
		path: map[string]string{"code": code, "email": email},
	})
}

// CheckToken validates a reset token.
func (c *Client) CheckToken(ctx context.Context, token string) (*CheckTokenResponse, error) {
	return send[CheckTokenResponse](ctx, c, call{op: "auth.check_token", method: http.MethodGet, route: "/auth/check-token/{token}", path: id("token", token)})
}

// ResetPasswordByToken sets a new password from an emailed link.
func (c *Client) ResetPasswordByToken(ctx context.Context, in ResetPasswordByTokenRequest) (*MessageResponse, error) {
	return send[MessageResponse](ctx, c, call{op: "auth.reset_password_by_token", method: http.MethodPost, route: "/auth/reset-password-by-token", body: in})
}

// ResetPasswordByCode sets a new password from an emailed code.
func (c *Client) ResetPasswordByCode(ctx context.Context, in ResetPasswordByCodeRequest) (*MessageResponse, error) {
	return send[MessageResponse](ctx, c, call{op: "auth.reset_password_by_code", method: http.MethodPost, route: "/auth/reset-password-by-code", body: in})
}

// RefreshToken exchanges the refresh token found in ctx for a new pair.
func (c *Client) RefreshToken(ctx context.Context) (shared.Tokens, error) {
	res, err := sendWithCookies[tokenResponse](ctx, c, call{op: "auth.refresh", method: http.MethodPost, route: "/auth/refresh"})
	if err != nil {
		return shared.Tokens{}, err
	}
	tokens := tokensFrom(res.value.AccessToken, res.value.RefreshToken, res.cookies)
	if tokens.Refresh == "" {
		tokens.Refresh = shared.TokensFromContext(ctx).Refresh
	}
	return tokens, nil
}

// Logout revokes the tokens found in ctx.
func (c *Client) Logout(ctx context.Context) error {
	_, err := send[MessageResponse](ctx, c, call{op: "auth.logout", method: http.MethodPost, route: "/auth/logout"})
	return err
}

// VerifyAccount confirms an account from an emailed token.
func (c *Client) VerifyAccount(ctx context.Context, token string) (*MessageResponse, error) {
	return send[MessageResponse](ctx, c, call{op: "auth.verify_account", method: http.MethodPost, route: "/auth/verify-account", body: map[string]string{"token": token}})
}

// GetProfile loads the profile of the tokens found in ctx.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	res, err := send[profileResponse](ctx, c, call{op: "auth.profile", method: http.MethodGet, route: "/auth/profile"})
	if err != nil {
		return nil, err
	}
	return &res.Profile, nil
}

func tokensFrom(access, refresh string, cookies []*http.Cookie) shared.Tokens {
	t := shared.Tokens{Access: access, Refresh: refresh}
	for _, ck := range cookies {
		switch {
		case ck.Name == AccessTokenCookie && t.Access == "":
			t.Access = ck.Value
		case ck.Name == RefreshTokenCookie && t.Refresh == "":
			t.Refresh = ck.Value
		}
	}
	return t
}
