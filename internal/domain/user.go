package domain

import (
	"context"
	"errors"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/model"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/errorx"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserDomain interface {
	Create(ctx context.Context, req *model.CreateUserRequest) (*model.CreateUserResponse, error)
	GetMe(ctx context.Context, req *model.GetUserRequest) (*model.GetUserResponse, error)
}

type userDomain struct {
	userRepo repository.UserRepository
}

func NewUserDomain(userRepo repository.UserRepository) *userDomain {
	return &userDomain{userRepo: userRepo}
}

func (d *userDomain) Create(ctx context.Context, req *model.CreateUserRequest) (*model.CreateUserResponse, error) {
	if req.Name == "" {
		return nil, errorx.New(errorx.BadRequest, "Name must not be empty")
	}

	user := &entity.User{
		Base: entity.Base{ID: uuid.NewString()},
		Name: req.Name,
	}

	if err := d.userRepo.Create(ctx, user); err != nil {
		if repository.IsDuplicateKeyError(err) {
			return nil, errorx.New(errorx.AlreadyExists, "This name is already taken")
		}

		xcontext.Logger(ctx).Errorf("Cannot create user: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateUserResponse{User: convertUser(user)}, nil
}

func (d *userDomain) GetMe(ctx context.Context, req *model.GetUserRequest) (*model.GetUserResponse, error) {
	user, err := d.userRepo.GetByID(ctx, xcontext.RequestUserID(ctx))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found user")
		}

		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetUserResponse{User: convertUser(user)}, nil
}
