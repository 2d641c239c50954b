package domain

import "time"

// Registration is a staged sign-up awaiting email verification.
// PK: email. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type Registration struct {
	Email           string    `json:"email" dynamodbav:"email"`
	VerificationOTP string    `json:"-" dynamodbav:"verification_otp"`
	CreatedAt       time.Time `json:"createdAt" dynamodbav:"created_at"`
	ExpiresAt       int64     `json:"expiresAt" dynamodbav:"expires_at"`
}

// Expired reports whether the staged record is past its TTL. DynamoDB removes
// expired items lazily, so reads re-check the boundary.
func (r *Registration) Expired(now time.Time) bool {
	return now.Unix() >= r.ExpiresAt
}
