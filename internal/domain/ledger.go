package domain

import (
	"context"
	"database/sql"
	"errors"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/model"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/errorx"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const opTypeApplyTransaction = "apply_transaction"

// ApplyInput describes a single balance mutation. All financial writes in the
// system funnel through LedgerDomain.Apply with one of these.
type ApplyInput struct {
	UserID string
	Type   entity.TransactionType
	Amount int64

	RoundID string
	BetID   string

	Description    string
	IdempotencyKey string
}

type LedgerDomain interface {
	Apply(ctx context.Context, input ApplyInput) (*entity.Transaction, error)

	// ApplyInTransaction performs the mutation inside the caller's open DB
	// transaction and skips idempotency record bookkeeping. The caller owns
	// both the transaction boundary and retry safety.
	ApplyInTransaction(ctx context.Context, input ApplyInput) (*entity.Transaction, error)

	Deposit(ctx context.Context, req *model.DepositRequest) (*model.DepositResponse, error)
	GetMyTransactions(ctx context.Context, req *model.GetMyTransactionsRequest) (*model.GetMyTransactionsResponse, error)
}

type ledgerDomain struct {
	userRepo        repository.UserRepository
	transactionRepo repository.TransactionRepository
	idempotencyRepo repository.IdempotencyRepository
}

func NewLedgerDomain(
	userRepo repository.UserRepository,
	transactionRepo repository.TransactionRepository,
	idempotencyRepo repository.IdempotencyRepository,
) *ledgerDomain {
	return &ledgerDomain{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		idempotencyRepo: idempotencyRepo,
	}
}

func (d *ledgerDomain) Apply(ctx context.Context, input ApplyInput) (*entity.Transaction, error) {
	if input.IdempotencyKey == "" {
		return d.apply(ctx, input)
	}

	if tx, done, err := d.claimKey(ctx, input.IdempotencyKey); done {
		return tx, err
	}

	tx, err := d.apply(ctx, input)
	if err != nil {
		if merr := d.idempotencyRepo.MarkFailed(
			ctx, input.IdempotencyKey, opTypeApplyTransaction, err.Error(),
		); merr != nil {
			xcontext.Logger(ctx).Errorf("Cannot mark idempotency record as failed: %v", merr)
		}
		return nil, err
	}

	if merr := d.idempotencyRepo.MarkSucceeded(
		ctx, input.IdempotencyKey, opTypeApplyTransaction, tx.ID,
	); merr != nil {
		xcontext.Logger(ctx).Errorf("Cannot mark idempotency record as succeeded: %v", merr)
	}

	return tx, nil
}

// claimKey resolves the idempotency record for the key. When done is true the
// operation must not run again: tx carries the original result for a replay
// of a succeeded operation, err carries the verdict otherwise.
func (d *ledgerDomain) claimKey(ctx context.Context, key string) (*entity.Transaction, bool, error) {
	record, err := d.idempotencyRepo.Get(ctx, key, opTypeApplyTransaction)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot get idempotency record: %v", err)
			return nil, true, errorx.Unknown
		}

		createErr := d.idempotencyRepo.Create(ctx, &entity.IdempotencyRecord{
			Base:   entity.Base{ID: uuid.NewString()},
			Key:    key,
			OpType: opTypeApplyTransaction,
			Status: entity.IdempotencyPending,
		})
		if createErr != nil {
			if repository.IsDuplicateKeyError(createErr) {
				return nil, true, errorx.New(errorx.Conflict, "Another identical operation is in flight")
			}

			xcontext.Logger(ctx).Errorf("Cannot create idempotency record: %v", createErr)
			return nil, true, errorx.Unknown
		}

		return nil, false, nil
	}

	switch record.Status {
	case entity.IdempotencySucceeded:
		tx, err := d.transactionRepo.GetByID(ctx, record.ResultRef.String)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot load transaction of replayed operation: %v", err)
			return nil, true, errorx.Unknown
		}
		return tx, true, nil

	case entity.IdempotencyPending:
		return nil, true, errorx.New(errorx.Conflict, "Another identical operation is in flight")

	case entity.IdempotencyFailed:
		if err := d.idempotencyRepo.Reopen(ctx, key, opTypeApplyTransaction); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, true, errorx.New(errorx.Conflict, "Another identical operation is in flight")
			}

			xcontext.Logger(ctx).Errorf("Cannot reopen idempotency record: %v", err)
			return nil, true, errorx.Unknown
		}
		return nil, false, nil

	default:
		xcontext.Logger(ctx).Errorf("Invalid idempotency record status %s", record.Status)
		return nil, true, errorx.Unknown
	}
}

func (d *ledgerDomain) apply(ctx context.Context, input ApplyInput) (*entity.Transaction, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	tx, err := d.ApplyInTransaction(ctx, input)
	if err != nil {
		return nil, err
	}

	xcontext.WithCommitDBTransaction(ctx)
	return tx, nil
}

func (d *ledgerDomain) ApplyInTransaction(ctx context.Context, input ApplyInput) (*entity.Transaction, error) {
	if input.Amount <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Amount must be a positive number")
	}

	switch input.Type {
	case entity.TransactionBet:
		if err := d.userRepo.DecreaseBalance(ctx, input.UserID, input.Amount); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				xcontext.Logger(ctx).Errorf("Cannot decrease balance: %v", err)
				return nil, errorx.Unknown
			}

			user, userErr := d.userRepo.GetByID(ctx, input.UserID)
			if userErr != nil {
				if errors.Is(userErr, gorm.ErrRecordNotFound) {
					return nil, errorx.New(errorx.NotFound, "Not found user")
				}

				xcontext.Logger(ctx).Errorf("Cannot get user: %v", userErr)
				return nil, errorx.Unknown
			}

			return nil, errorx.New(errorx.InsufficientFunds,
				"Insufficient funds: required %d, available %d", input.Amount, user.Balance)
		}

	case entity.TransactionRefund, entity.TransactionDeposit:
		if err := d.userRepo.IncreaseBalance(ctx, input.UserID, input.Amount); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errorx.New(errorx.NotFound, "Not found user")
			}

			xcontext.Logger(ctx).Errorf("Cannot increase balance: %v", err)
			return nil, errorx.Unknown
		}

	case entity.TransactionPrize:
		if err := d.userRepo.IncreaseRewardPoints(ctx, input.UserID, input.Amount); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errorx.New(errorx.NotFound, "Not found user")
			}

			xcontext.Logger(ctx).Errorf("Cannot increase reward points: %v", err)
			return nil, errorx.Unknown
		}

	default:
		return nil, errorx.New(errorx.BadRequest, "Invalid transaction type %s", input.Type)
	}

	tx := &entity.Transaction{
		Base:           entity.Base{ID: uuid.NewString()},
		UserID:         input.UserID,
		Type:           input.Type,
		Amount:         input.Amount,
		RoundID:        toNullString(input.RoundID),
		BetID:          toNullString(input.BetID),
		Description:    input.Description,
		IdempotencyKey: toNullString(input.IdempotencyKey),
	}

	if err := d.transactionRepo.Create(ctx, tx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create transaction: %v", err)
		return nil, errorx.Unknown
	}

	return tx, nil
}

func (d *ledgerDomain) Deposit(
	ctx context.Context, req *model.DepositRequest,
) (*model.DepositResponse, error) {
	userID := req.UserID
	if userID == "" {
		userID = xcontext.RequestUserID(ctx)
	}

	tx, err := d.Apply(ctx, ApplyInput{
		UserID:         userID,
		Type:           entity.TransactionDeposit,
		Amount:         req.Amount,
		Description:    "Deposit",
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	return &model.DepositResponse{Transaction: convertTransaction(tx)}, nil
}

func (d *ledgerDomain) GetMyTransactions(
	ctx context.Context, req *model.GetMyTransactionsRequest,
) (*model.GetMyTransactionsResponse, error) {
	txs, err := d.transactionRepo.GetByUserID(ctx, xcontext.RequestUserID(ctx))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get transactions: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetMyTransactionsResponse{Transactions: []model.Transaction{}}
	for i := range txs {
		resp.Transactions = append(resp.Transactions, convertTransaction(&txs[i]))
	}

	return resp, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}

	return sql.NullString{Valid: true, String: s}
}
