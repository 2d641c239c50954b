package domain

import "time"

type User struct {
	UserID       string `json:"id" dynamodbav:"user_id"`
	Username     string `json:"username" dynamodbav:"username"`
	Email        string `json:"email" dynamodbav:"email"`
	FullName     string `json:"fullName" dynamodbav:"full_name"`
	Avatar       string `json:"avatar" dynamodbav:"avatar"`
	CoverImage   string `json:"coverImage,omitempty" dynamodbav:"cover_image,omitempty"`
	PasswordHash string `json:"-" dynamodbav:"password_hash"`
	// RefreshToken is the single live refresh token; empty after logout.
	RefreshToken            string     `json:"-" dynamodbav:"refresh_token,omitempty"`
	ForgotPasswordOTP       string     `json:"-" dynamodbav:"forgot_password_otp,omitempty"`
	ForgotPasswordOTPExpiry *time.Time `json:"-" dynamodbav:"forgot_password_otp_expiry,omitempty"`
	CreatedAt               time.Time  `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt               time.Time  `json:"updatedAt" dynamodbav:"updated_at"`
}

// Owner is the public profile projection joined onto listed content.
type Owner struct {
	UserID   string `json:"id" dynamodbav:"user_id"`
	Username string `json:"username" dynamodbav:"username"`
	FullName string `json:"fullName" dynamodbav:"full_name"`
	Avatar   string `json:"avatar" dynamodbav:"avatar"`
}

func (u *User) Owner() Owner {
	return Owner{UserID: u.UserID, Username: u.Username, FullName: u.FullName, Avatar: u.Avatar}
}

// ChannelProfile is a user's public channel page as seen by a viewer.
type ChannelProfile struct {
	UserID                    string    `json:"id"`
	Username                  string    `json:"username"`
	FullName                  string    `json:"fullName"`
	Email                     string    `json:"email"`
	Avatar                    string    `json:"avatar"`
	CoverImage                string    `json:"coverImage,omitempty"`
	SubscribersCount          int       `json:"subscribersCount"`
	ChannelsSubscribedToCount int       `json:"channelsSubscribedToCount"`
	IsSubscribed              bool      `json:"isSubscribed"`
	CreatedAt                 time.Time `json:"createdAt"`
}

type RegisterRequest struct {
	FullName   string `json:"fullName" validate:"required"`
	Username   string `json:"username" validate:"required,handle"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	AvatarPath string `json:"-" validate:"required"`
	CoverPath  string `json:"-"`
}

type UpdateAccountRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Username *string `json:"username" validate:"omitempty,handle"`
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"oldPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,min=8,max=72"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required"`
}
