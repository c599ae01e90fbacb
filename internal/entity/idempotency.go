package entity

import (
	"database/sql"

	"github.com/auctionx-lab/backend/pkg/enum"
)

type IdempotencyStatusType string

var (
	IdempotencyPending   = enum.New(IdempotencyStatusType("pending"))
	IdempotencySucceeded = enum.New(IdempotencyStatusType("succeeded"))
	IdempotencyFailed    = enum.New(IdempotencyStatusType("failed"))
)

// IdempotencyRecord makes financial operations safe under client retries and
// concurrent duplicate submission. The unique (key, op_type) pair is the
// insert-if-absent guard; a record must never be left pending by the code
// path itself, only by a process crash inside the critical section.
type IdempotencyRecord struct {
	Base

	// The column is named op_key because `key` is reserved in mysql.
	Key    string `gorm:"column:op_key;uniqueIndex:idx_idempotency_key_op"`
	OpType string `gorm:"uniqueIndex:idx_idempotency_key_op"`

	Status IdempotencyStatusType

	// ResultRef points at the transaction or bet produced by the succeeded
	// operation so a replay can return the original result.
	ResultRef sql.NullString
	ErrorInfo sql.NullString
}
