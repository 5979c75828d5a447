package services

import "time"

const (
	KeyUserSession       = "user:%s:session:%s"
	KeyGameRecord        = "blockjack:%s:game:%s"
	KeyFinishedGame      = "blockjack:finished:%s"
	KeyUserFinishedGames = "user:%s:finished_games"
	KeyRateLimit         = "ratelimit:%s:%s"

	TTLUserSession  = 24 * time.Hour
	TTLFinishedGame = 30 * 24 * time.Hour // 30 days

	MaxHistory = 100
)
