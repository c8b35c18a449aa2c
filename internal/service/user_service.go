package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/sleepgraph/config"
	"github.com/d60-Lab/sleepgraph/internal/model"
	"github.com/d60-Lab/sleepgraph/internal/repository"
	"github.com/d60-Lab/sleepgraph/pkg/pagination"
)

var validate = validator.New()

// CreateUserRequest name 必填，长度 2~100，创建后不可改
type CreateUserRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

type UserService interface {
	Create(ctx context.Context, req *CreateUserRequest) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, p pagination.Params) ([]*model.User, pagination.Meta, error)
	// Delete 级联删除用户的睡眠记录与双向关注边
	Delete(ctx context.Context, id string) error
}

type userService struct {
	userRepo repository.UserRepository
	pageCfg  config.PaginationConfig
}

func NewUserService(userRepo repository.UserRepository, pageCfg config.PaginationConfig) UserService {
	return &userService{userRepo: userRepo, pageCfg: pageCfg}
}

func (s *userService) Create(ctx context.Context, req *CreateUserRequest) (*model.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate user: %w", err)
	}
	u := &model.User{Name: req.Name}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *userService) List(ctx context.Context, p pagination.Params) ([]*model.User, pagination.Meta, error) {
	p = p.Normalize(s.pageCfg.DefaultPageSize, s.pageCfg.MaxPageSize)
	items, total, err := s.userRepo.List(ctx, p.Offset(), p.PerPage)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return items, pagination.NewMeta(p, total), nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	deleted, err := s.userRepo.DeleteCascade(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrUserNotFound
	}
	return nil
}
