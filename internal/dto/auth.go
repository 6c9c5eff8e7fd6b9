package dto

import "github.com/noah-isme/smart-haryana-gateway/internal/models"

// LoginResponse returns the backend token and the resolved caller.
type LoginResponse struct {
	AccessToken string             `json:"access_token"`
	TokenType   string             `json:"token_type"`
	Profile     models.UserProfile `json:"profile"`
}
