package common

import "fmt"

// Idempotency keys for settlement money movements. They are derived from the
// identity of the movement itself, so redelivered jobs reuse the same key and
// the ledger applies each movement at most once.

func PrizeIdempotencyKey(roundID, userID string, rank int) string {
	return fmt.Sprintf("prize:%s:%s:%d", roundID, userID, rank)
}

func RefundIdempotencyKey(auctionID, userID string) string {
	return fmt.Sprintf("refund:%s:%s", auctionID, userID)
}
