package common

import "fmt"

func RedisKeyCurrentAuction() string {
	return "current:auction"
}

func RedisKeyCurrentRound() string {
	return "current:round"
}

func RedisKeyLeaderboard(roundID string) string {
	return fmt.Sprintf("leaderboard:%s", roundID)
}
