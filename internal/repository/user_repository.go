package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/sleepgraph/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	// GetByID 不存在时返回 (nil, nil)，由上层翻译成 NotFound
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]*model.User, int64, error)
	// DeleteCascade 一个事务内删用户及其全部所属数据：
	// 睡眠记录、双向关注边、粉丝冗余
	DeleteCascade(ctx context.Context, id string) (bool, error)
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) List(ctx context.Context, offset, limit int) ([]*model.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var res []*model.User
	err := r.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, total, err
}

func (r *userRepository) DeleteCascade(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.SleepRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR followee_id = ?", id, id).Delete(&model.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR fan_id = ?", id, id).Delete(&model.Fan{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.User{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}
