package auth

import "github.com/rbac-console/rbac-console/internal/apiclient"

func registerRequest(f registerForm) apiclient.RegisterRequest {
	return apiclient.RegisterRequest{
		Email:           f.Email,
		FullName:        f.FullName,
		Password:        f.Password,
		ConfirmPassword: f.ConfirmPassword,
	}
}

func forgotRequest(f forgotForm) apiclient.ForgotPasswordRequest {
	return apiclient.ForgotPasswordRequest{Email: f.Email, OS: "web"}
}

func resetRequest(token string, f resetForm) apiclient.ResetPasswordByTokenRequest {
	return apiclient.ResetPasswordByTokenRequest{
		Token:           token,
		NewPassword:     f.NewPassword,
		ConfirmPassword: f.ConfirmPassword,
	}
}
