package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/sleepgraph/config"
	"github.com/d60-Lab/sleepgraph/internal/model"
	"github.com/d60-Lab/sleepgraph/internal/repository"
	"github.com/d60-Lab/sleepgraph/pkg/logger"
	"github.com/d60-Lab/sleepgraph/pkg/pagination"
)

// ErrClockConflict 两个并发 toggle 抢建 in-progress 记录，
// 后提交者撞 idx_sleep_one_in_progress 唯一索引
var ErrClockConflict = errors.New("concurrent clock toggle, retry")

// ClockAction 打卡结果：这次 toggle 是睡下还是醒来
type ClockAction int

const (
	ClockedIn ClockAction = iota + 1
	ClockedOut
)

func (a ClockAction) String() string {
	switch a {
	case ClockedIn:
		return "clocked_in"
	case ClockedOut:
		return "clocked_out"
	}
	return "unknown"
}

// SleepService 睡眠记录服务。ClockToggle 是记录创建/闭合的唯一写路径，
// “每用户至多一条 in-progress” 的不变式由它保证。
type SleepService interface {
	ClockToggle(ctx context.Context, userID string, now time.Time) (*model.SleepRecord, ClockAction, error)
	History(ctx context.Context, userID string, p pagination.Params) ([]*model.SleepRecord, pagination.Meta, error)
	// FriendsFeed 关注对象近一窗口内已完成的睡眠记录，duration 降序
	FriendsFeed(ctx context.Context, userID string, asOf time.Time, p pagination.Params) ([]*model.SleepRecord, pagination.Meta, error)
}

type sleepService struct {
	db         *gorm.DB
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	window     time.Duration
	pageCfg    config.PaginationConfig
}

func NewSleepService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	feedCfg config.FeedConfig,
	pageCfg config.PaginationConfig,
) SleepService {
	windowDays := feedCfg.WindowDays
	if windowDays <= 0 {
		windowDays = 7
	}
	return &sleepService{
		db:         db,
		userRepo:   userRepo,
		followRepo: followRepo,
		window:     time.Duration(windowDays) * 24 * time.Hour,
		pageCfg:    pageCfg,
	}
}

// ClockToggle 读改写必须在同一事务里：先找 in-progress 记录，
// 有则闭合（clock out），没有则新建（clock in）。FOR UPDATE 只锁
// 已存在的行，拦不住两个并发 clock in 各建一条；最终兜底是
// idx_sleep_one_in_progress 部分唯一索引，后提交者报 ErrClockConflict。
func (s *sleepService) ClockToggle(ctx context.Context, userID string, now time.Time) (*model.SleepRecord, ClockAction, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, 0, err
	}

	var (
		rec    *model.SleepRecord
		action ClockAction
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewSleepRecordRepository(tx)

		current, err := repo.FindInProgress(ctx, userID)
		if err != nil {
			return err
		}
		if current != nil {
			if err := current.Complete(now); err != nil {
				return err
			}
			if err := repo.Save(ctx, current); err != nil {
				return err
			}
			rec, action = current, ClockedOut
			return nil
		}

		created := &model.SleepRecord{UserID: userID, SleepAt: now}
		if err := repo.Create(ctx, created); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrClockConflict
			}
			return err
		}
		rec, action = created, ClockedIn
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	logger.Debug("clock toggle",
		zap.String("user", userID),
		zap.String("action", action.String()),
		zap.String("record", rec.ID))
	return rec, action, nil
}

func (s *sleepService) History(ctx context.Context, userID string, p pagination.Params) ([]*model.SleepRecord, pagination.Meta, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, pagination.Meta{}, err
	}
	p = p.Normalize(s.pageCfg.DefaultPageSize, s.pageCfg.MaxPageSize)
	repo := repository.NewSleepRecordRepository(s.db)
	items, total, err := repo.ListByUser(ctx, userID, p.Offset(), p.PerPage)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return items, pagination.NewMeta(p, total), nil
}

func (s *sleepService) FriendsFeed(ctx context.Context, userID string, asOf time.Time, p pagination.Params) ([]*model.SleepRecord, pagination.Meta, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, pagination.Meta{}, err
	}
	p = p.Normalize(s.pageCfg.DefaultPageSize, s.pageCfg.MaxPageSize)

	followees, err := s.followRepo.FolloweeIDs(ctx, userID)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	// 没关注任何人：空页不算错误，total_count = 0，不发查询
	if len(followees) == 0 {
		return []*model.SleepRecord{}, pagination.NewMeta(p, 0), nil
	}

	repo := repository.NewSleepRecordRepository(s.db)
	items, total, err := repo.Feed(ctx, repository.SleepFeedQuery{
		OwnerIDs:      followees,
		From:          asOf.Add(-s.window),
		To:            asOf,
		CompletedOnly: true, // in-progress 没有 duration，不进动态
		Offset:        p.Offset(),
		Limit:         p.PerPage,
	})
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return items, pagination.NewMeta(p, total), nil
}

func (s *sleepService) ensureUser(ctx context.Context, userID string) error {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	return nil
}
