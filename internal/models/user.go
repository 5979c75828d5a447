package models

import "time"

type UserSession struct {
	PlayerID     string    `json:"player_id"`
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

type TokenRequest struct {
	Player string `json:"player" binding:"required"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	Player    string    `json:"player"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
