package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/sleepgraph/internal/model"
)

// SleepFeedQuery 好友睡眠动态的全部查询参数。
// 显式一个参数结构 + 一个存储层函数，不做链式 scope 组合。
type SleepFeedQuery struct {
	OwnerIDs      []string
	From          time.Time
	To            time.Time
	CompletedOnly bool
	Offset        int
	Limit         int
}

type SleepRecordRepository interface {
	Create(ctx context.Context, rec *model.SleepRecord) error
	Save(ctx context.Context, rec *model.SleepRecord) error
	// FindInProgress 找当前 in-progress 记录（wake_up_at IS NULL），
	// 没有时返回 (nil, nil)。postgres 下带行锁；锁只护已存在的行，
	// 并发抢建由 idx_sleep_one_in_progress 唯一索引兜底。
	FindInProgress(ctx context.Context, userID string) (*model.SleepRecord, error)
	// ListByUser 按创建时间倒序的个人历史
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.SleepRecord, int64, error)
	// Feed 按 SleepFeedQuery 查询，duration 降序；并列时按 id 升序，
	// 这是对外承诺的确定性次序（分页不抖动）
	Feed(ctx context.Context, q SleepFeedQuery) ([]*model.SleepRecord, int64, error)
}

type sleepRecordRepository struct {
	db *gorm.DB
}

func NewSleepRecordRepository(db *gorm.DB) SleepRecordRepository {
	return &sleepRecordRepository{db: db}
}

func (r *sleepRecordRepository) Create(ctx context.Context, rec *model.SleepRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *sleepRecordRepository) Save(ctx context.Context, rec *model.SleepRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *sleepRecordRepository) FindInProgress(ctx context.Context, userID string) (*model.SleepRecord, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND wake_up_at IS NULL", userID).
		Order("created_at DESC, id DESC")
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rec model.SleepRecord
	if err := q.First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *sleepRecordRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.SleepRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.SleepRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var res []*model.SleepRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, total, err
}

func (r *sleepRecordRepository) Feed(ctx context.Context, q SleepFeedQuery) ([]*model.SleepRecord, int64, error) {
	if len(q.OwnerIDs) == 0 {
		return []*model.SleepRecord{}, 0, nil
	}

	base := r.db.WithContext(ctx).
		Model(&model.SleepRecord{}).
		Where("user_id IN ?", q.OwnerIDs).
		Where("sleep_at >= ? AND sleep_at <= ?", q.From, q.To)
	if q.CompletedOnly {
		base = base.Where("wake_up_at IS NOT NULL")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var res []*model.SleepRecord
	err := base.Session(&gorm.Session{}).
		Order("duration_in_seconds DESC, id ASC").
		Offset(q.Offset).Limit(q.Limit).
		Find(&res).Error
	return res, total, err
}
