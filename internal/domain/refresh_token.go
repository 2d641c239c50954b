package domain

import "time"

// RefreshToken records one issued refresh token within a rotation family.
// PK: token_id (the JWT jti). ExpiresAt is the DynamoDB TTL attribute.
type RefreshToken struct {
	TokenID   string    `json:"id" dynamodbav:"token_id"`
	FamilyID  string    `json:"family_id" dynamodbav:"family_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Spent     bool      `json:"spent" dynamodbav:"spent"`
	Revoked   bool      `json:"revoked" dynamodbav:"revoked"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"`
}

// TokenPair is what a successful login or rotation hands back to the client.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}
