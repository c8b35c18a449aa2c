package service

import (
	"context"
	"errors"

	"github.com/d60-Lab/sleepgraph/config"
	"github.com/d60-Lab/sleepgraph/internal/cache"
	"github.com/d60-Lab/sleepgraph/internal/repository"
	"github.com/d60-Lab/sleepgraph/pkg/pagination"
)

var (
	ErrFollowSelf   = errors.New("cannot follow self")
	ErrUserNotFound = errors.New("user not found")
)

// RelationshipService 关系链服务。
// Follow/Unfollow 返回的 bool 表示这次调用是否真的改了边：
// 重复关注、取关不存在的边都是 no-op（false），不算内部错误。
type RelationshipService interface {
	Follow(ctx context.Context, fromUserID, toUserID string) (bool, error)
	Unfollow(ctx context.Context, fromUserID, toUserID string) (bool, error)
	IsFollowing(ctx context.Context, fromUserID, toUserID string) (bool, error)
	ListFollowing(ctx context.Context, userID string, p pagination.Params) ([]string, pagination.Meta, error)
	ListFans(ctx context.Context, userID string, p pagination.Params) ([]string, pagination.Meta, error)
	FollowerCount(ctx context.Context, userID string) (int64, error)
	FollowingCount(ctx context.Context, userID string) (int64, error)
}

type relationshipService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	fanRepo    repository.FanRepository
	replicator *FanReplicator
	counts     *cache.CountCache
	pageCfg    config.PaginationConfig
}

func NewRelationshipService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	fanRepo repository.FanRepository,
	replicator *FanReplicator,
	counts *cache.CountCache,
	pageCfg config.PaginationConfig,
) RelationshipService {
	return &relationshipService{
		userRepo:   userRepo,
		followRepo: followRepo,
		fanRepo:    fanRepo,
		replicator: replicator,
		counts:     counts,
		pageCfg:    pageCfg,
	}
}

func (s *relationshipService) Follow(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	if fromUserID == toUserID {
		return false, ErrFollowSelf
	}
	if err := s.ensureUsers(ctx, fromUserID, toUserID); err != nil {
		return false, err
	}
	created, err := s.followRepo.Create(ctx, fromUserID, toUserID)
	if err != nil || !created {
		return false, err
	}
	if s.replicator != nil {
		s.replicator.EnqueueAdd(toUserID, fromUserID)
	}
	if s.counts != nil {
		s.counts.Invalidate(ctx, fromUserID, toUserID)
	}
	return true, nil
}

func (s *relationshipService) Unfollow(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	if err := s.ensureUsers(ctx, fromUserID, toUserID); err != nil {
		return false, err
	}
	removed, err := s.followRepo.Delete(ctx, fromUserID, toUserID)
	if err != nil || !removed {
		return false, err
	}
	if s.replicator != nil {
		s.replicator.EnqueueRemove(toUserID, fromUserID)
	}
	if s.counts != nil {
		s.counts.Invalidate(ctx, fromUserID, toUserID)
	}
	return true, nil
}

func (s *relationshipService) IsFollowing(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	return s.followRepo.Exists(ctx, fromUserID, toUserID)
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, p pagination.Params) ([]string, pagination.Meta, error) {
	p = p.Normalize(s.pageCfg.DefaultPageSize, s.pageCfg.MaxPageSize)
	items, total, err := s.followRepo.ListFollowings(ctx, userID, p.Offset(), p.PerPage)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, pagination.NewMeta(p, total), nil
}

// ListFans 读粉丝冗余表；replicator 是异步落地，短暂窗口内可能滞后
func (s *relationshipService) ListFans(ctx context.Context, userID string, p pagination.Params) ([]string, pagination.Meta, error) {
	p = p.Normalize(s.pageCfg.DefaultPageSize, s.pageCfg.MaxPageSize)
	items, total, err := s.fanRepo.ListFans(ctx, userID, p.Offset(), p.PerPage)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FanID
	}
	return res, pagination.NewMeta(p, total), nil
}

// FollowerCount 精确值从 follows 表数，命中时走 redis 缓存
func (s *relationshipService) FollowerCount(ctx context.Context, userID string) (int64, error) {
	if s.counts != nil {
		if n, ok := s.counts.GetFollowers(ctx, userID); ok {
			return n, nil
		}
	}
	n, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.counts != nil {
		s.counts.SetFollowers(ctx, userID, n)
	}
	return n, nil
}

func (s *relationshipService) FollowingCount(ctx context.Context, userID string) (int64, error) {
	if s.counts != nil {
		if n, ok := s.counts.GetFollowing(ctx, userID); ok {
			return n, nil
		}
	}
	n, err := s.followRepo.CountFollowing(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.counts != nil {
		s.counts.SetFollowing(ctx, userID, n)
	}
	return n, nil
}

func (s *relationshipService) ensureUsers(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		u, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
	}
	return nil
}
