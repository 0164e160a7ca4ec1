package dto

import "github.com/amoylab/hydrowatch/internal/apiserver/database"

// SignupRequest registers a regular user
type SignupRequest struct {
	Username        string `json:"username" binding:"required,max=50"`
	Email           string `json:"email" binding:"required,email"`
	Phone           string `json:"phone,omitempty" binding:"omitempty,max=32"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

// LoginRequest accepts either the email or the username as identifier
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token       string         `json:"token"`
	User        *database.User `json:"user"`
	RedirectURL string         `json:"redirectUrl"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

// EmailRequest carries a bare email address (resend OTP, forgot password)
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email" binding:"required,email"`
	OTP             string `json:"otp" binding:"required,len=6,numeric"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=NewPassword"`
}

// UpdateProfileRequest changes contact details; empty fields are left alone
type UpdateProfileRequest struct {
	Username string `json:"username,omitempty" binding:"omitempty,max=50"`
	Phone    string `json:"phone,omitempty" binding:"omitempty,max=32"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// MessageResponse is the body of operations without a resource to return
type MessageResponse struct {
	Message string `json:"message"`
}
