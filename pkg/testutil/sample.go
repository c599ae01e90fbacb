package testutil

import (
	"context"
	"reflect"
	"time"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/google/uuid"
)

// SampleUser creates a user with a random name and a comfortable balance.
// Non-zero fields of init overwrite the sample before it is saved.
func SampleUser(ctx context.Context, init *entity.User) (entity.User, error) {
	sample := &entity.User{
		Base:    entity.Base{ID: uuid.NewString()},
		Name:    uuid.NewString(),
		Balance: 1_000_000,
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := repository.NewUserRepository().Create(ctx, sample); err != nil {
		return *sample, err
	}
	return *sample, nil
}

func SampleAuction(ctx context.Context, init *entity.Auction) (entity.Auction, error) {
	sample := &entity.Auction{
		Base:            entity.Base{ID: uuid.NewString()},
		Name:            uuid.NewString(),
		PrizeAmount:     1000,
		WinnersPerRound: 2,
		TotalRounds:     3,
		RoundDuration:   time.Minute,
		Status:          entity.AuctionActive,
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := repository.NewAuctionRepository().Create(ctx, sample); err != nil {
		return *sample, err
	}
	return *sample, nil
}

func SampleRound(ctx context.Context, init *entity.Round) (entity.Round, error) {
	now := time.Now()
	sample := &entity.Round{
		Base:      entity.Base{ID: uuid.NewString()},
		Number:    1,
		Status:    entity.RoundActive,
		StartTime: now,
		EndTime:   now.Add(time.Minute),
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := repository.NewRoundRepository().Create(ctx, sample); err != nil {
		return *sample, err
	}
	return *sample, nil
}

func SampleBet(ctx context.Context, init *entity.Bet) (entity.Bet, error) {
	sample := &entity.Bet{
		Base:   entity.Base{ID: uuid.NewString()},
		UserID: uuid.NewString(),
		Amount: 100,
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := repository.NewBetRepository().Create(ctx, sample); err != nil {
		return *sample, err
	}
	return *sample, nil
}

func overwriteFields[T any](origin *T, overwrite T) {
	originValue := reflect.ValueOf(origin).Elem()
	overwriteValue := reflect.ValueOf(overwrite)

	for i := 0; i < overwriteValue.NumField(); i++ {
		overwriteField := overwriteValue.Field(i)
		if overwriteField.Interface() != reflect.Zero(overwriteField.Type()).Interface() {
			originValue.Field(i).Set(overwriteField)
		}
	}
}
