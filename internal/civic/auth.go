package civic

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

// Token is the backend-issued bearer token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (Token, error) {
	const op = "login"
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	body, err := c.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return Token{}, err
	}
	w, err := decoder{op: op, validate: c.validate}.token(body)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: w.AccessToken, TokenType: w.TokenType}, nil
}

// Me returns the profile of the token's owner.
func (c *Client) Me(ctx context.Context, token string) (models.UserProfile, error) {
	const op = "me"
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/users/me", token: token})
	if err != nil {
		return models.UserProfile{}, err
	}
	return decoder{op: op, validate: c.validate}.profile(body)
}
