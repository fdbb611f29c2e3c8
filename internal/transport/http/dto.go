package http

import (
	"time"

	"github.com/pribylovaa/session-service/internal/models"
)

// tokenType — схема заголовка Authorization для access-токена.
const tokenType = "Bearer"

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest: задаётся username или email; при обоих приоритет у username.
type loginRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

func (in loginRequest) login() string {
	if in.Username != "" {
		return in.Username
	}

	return in.Email
}

type authenticationResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	Expires     time.Time `json:"expires"`
}

func newAuthenticationResponse(at *models.AccessToken) authenticationResponse {
	return authenticationResponse{
		AccessToken: at.Token,
		TokenType:   tokenType,
		Expires:     at.ExpiresAt.UTC(),
	}
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC(),
	}
}
