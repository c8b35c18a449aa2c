package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/sleepgraph/config"
	"github.com/d60-Lab/sleepgraph/internal/model"
	"github.com/d60-Lab/sleepgraph/internal/repository"
	"github.com/d60-Lab/sleepgraph/pkg/pagination"
)

var testPageCfg = config.PaginationConfig{DefaultPageSize: 20, MaxPageSize: 100}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	// :memory: 每个连接是独立库，连接池必须收到 1
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Follow{}, &model.Fan{}, &model.SleepRecord{}))
	return db
}

func setupSleepTest(t *testing.T) (*gorm.DB, repository.UserRepository, repository.FollowRepository, SleepService) {
	t.Helper()
	db := openTestDB(t)
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	svc := NewSleepService(db, userRepo, followRepo, config.FeedConfig{WindowDays: 7}, testPageCfg)
	return db, userRepo, followRepo, svc
}

func createUser(t *testing.T, repo repository.UserRepository, name string) *model.User {
	t.Helper()
	u := &model.User{Name: name}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func inProgressCount(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var cnt int64
	require.NoError(t, db.Model(&model.SleepRecord{}).
		Where("user_id = ? AND wake_up_at IS NULL", userID).
		Count(&cnt).Error)
	return cnt
}

func TestClockToggleInThenOut(t *testing.T) {
	db, userRepo, _, svc := setupSleepTest(t)
	ctx := context.Background()
	a := createUser(t, userRepo, "alice")

	t0 := time.Date(2025, 9, 10, 22, 0, 0, 0, time.UTC)

	rec, action, err := svc.ClockToggle(ctx, a.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, ClockedIn, action)
	assert.True(t, rec.SleepAt.Equal(t0))
	assert.Nil(t, rec.WakeUpAt)
	assert.Nil(t, rec.DurationInSeconds)
	assert.Equal(t, int64(1), inProgressCount(t, db, a.ID))

	rec, action, err = svc.ClockToggle(ctx, a.ID, t0.Add(8*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, ClockedOut, action)
	require.NotNil(t, rec.WakeUpAt)
	require.NotNil(t, rec.DurationInSeconds)
	assert.Equal(t, int64(28800), *rec.DurationInSeconds)
	assert.True(t, rec.WakeUpAt.After(rec.SleepAt))
	assert.Equal(t, int64(0), inProgressCount(t, db, a.ID))
}

func TestClockToggleAlternates(t *testing.T) {
	db, userRepo, _, svc := setupSleepTest(t)
	ctx := context.Background()
	a := createUser(t, userRepo, "alice")

	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		now = now.Add(6 * time.Hour)
		_, action, err := svc.ClockToggle(ctx, a.ID, now)
		require.NoError(t, err)
		if i%2 == 0 {
			assert.Equal(t, ClockedIn, action)
		} else {
			assert.Equal(t, ClockedOut, action)
		}
		// 不变式：任何时刻 in-progress 记录数 <= 1
		assert.LessOrEqual(t, inProgressCount(t, db, a.ID), int64(1))
	}
}

func TestClockToggleDurationExact(t *testing.T) {
	_, userRepo, _, svc := setupSleepTest(t)
	ctx := context.Background()
	a := createUser(t, userRepo, "alice")

	t0 := time.Date(2025, 9, 10, 23, 30, 0, 0, time.UTC)
	_, _, err := svc.ClockToggle(ctx, a.ID, t0)
	require.NoError(t, err)

	wake := t0.Add(7*time.Hour + 23*time.Minute + 45*time.Second)
	rec, _, err := svc.ClockToggle(ctx, a.ID, wake)
	require.NoError(t, err)
	assert.Equal(t, int64(7*3600+23*60+45), *rec.DurationInSeconds)
}

func TestClockToggleRejectsWakeBeforeSleep(t *testing.T) {
	db, userRepo, _, svc := setupSleepTest(t)
	ctx := context.Background()
	a := createUser(t, userRepo, "alice")

	t0 := time.Date(2025, 9, 10, 22, 0, 0, 0, time.UTC)
	_, _, err := svc.ClockToggle(ctx, a.ID, t0)
	require.NoError(t, err)

	// wake == sleep 也不行，duration 必须为正
	_, _, err = svc.ClockToggle(ctx, a.ID, t0)
	require.ErrorIs(t, err, model.ErrWakeBeforeSleep)

	// 记录保持 in-progress，没有半写状态
	assert.Equal(t, int64(1), inProgressCount(t, db, a.ID))
}

func TestClockToggleRejectsSubSecondClockOut(t *testing.T) {
	db, userRepo, _, svc := setupSleepTest(t)
	ctx := context.Background()
	a := createUser(t, userRepo, "alice")

	t0 := time.Date(2025, 9, 10, 22, 0, 0, 0, time.UTC)
	_, _, err := svc.ClockToggle(ctx, a.ID, t0)
	require.NoError(t, err)

	// 不到一秒就醒：截断后 duration = 0，拒绝而不是落库
	_, _, err = svc.ClockToggle(ctx, a.ID, t0.Add(500*time.Millisecond))
	require.ErrorIs(t, err, model.ErrSleepTooShort)
	assert.Equal(t, int64(1), inProgressCount(t, db, a.ID))

	var zeroDur int64
	require.NoError(t, db.Model(&model.SleepRecord{}).
		Where("duration_in_seconds IS NOT NULL AND duration_in_seconds <= 0").
		Count(&zeroDur).Error)
	assert.Equal(t, int64(0), zeroDur)

	// 满一秒之后正常闭合
	rec, action, err := svc.ClockToggle(ctx, a.ID, t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, ClockedOut, action)
	assert.Equal(t, int64(2), *rec.DurationInSeconds)
}

func TestClockToggleConcurrent(t *testing.T) {
	db, userRepo, _, svc := setupSleepTest(t)
	a := createUser(t, userRepo, "alice")

	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	var step int64
	var ins, outs int64
	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 30; i++ {
				now := base.Add(time.Duration(atomic.AddInt64(&step, 1)) * time.Minute)
				_, action, err := svc.ClockToggle(context.Background(), a.ID, now)
				if err != nil {
					// 竞态只允许域内错误，不允许裸的存储层错误
					if !errors.Is(err, ErrClockConflict) && !errors.Is(err, model.ErrWakeBeforeSleep) {
						t.Errorf("unexpected toggle error: %v", err)
					}
					continue
				}
				switch action {
				case ClockedIn:
					atomic.AddInt64(&ins, 1)
				case ClockedOut:
					atomic.AddInt64(&outs, 1)
				}
			}
		}()
	}
	wg.Wait()

	// 不变式：至多一条 in-progress，且恰好等于未配对的 clock-in 数
	open := inProgressCount(t, db, a.ID)
	assert.LessOrEqual(t, open, int64(1))
	assert.Equal(t, atomic.LoadInt64(&ins)-atomic.LoadInt64(&outs), open)
}

func TestClockToggleUnknownUser(t *testing.T) {
	_, _, _, svc := setupSleepTest(t)
	_, _, err := svc.ClockToggle(context.Background(), "missing", time.Now())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestFriendsFeedScenario(t *testing.T) {
	_, userRepo, followRepo, svc := setupSleepTest(t)
	ctx := context.Background()

	a := createUser(t, userRepo, "alice")
	b := createUser(t, userRepo, "bob")
	c := createUser(t, userRepo, "carol")
	_, err := followRepo.Create(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = followRepo.Create(ctx, a.ID, c.ID)
	require.NoError(t, err)

	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

	// b：10 天前一条（窗口外），2 天前一条 7 小时
	_, _, err = svc.ClockToggle(ctx, b.ID, now.Add(-10*24*time.Hour))
	require.NoError(t, err)
	_, _, err = svc.ClockToggle(ctx, b.ID, now.Add(-10*24*time.Hour).Add(6*time.Hour))
	require.NoError(t, err)
	_, _, err = svc.ClockToggle(ctx, b.ID, now.Add(-2*24*time.Hour))
	require.NoError(t, err)
	_, _, err = svc.ClockToggle(ctx, b.ID, now.Add(-2*24*time.Hour).Add(7*time.Hour))
	require.NoError(t, err)

	// c：1 天前一条 9 小时，外加一条还没醒的（不进动态）
	_, _, err = svc.ClockToggle(ctx, c.ID, now.Add(-24*time.Hour))
	require.NoError(t, err)
	_, _, err = svc.ClockToggle(ctx, c.ID, now.Add(-24*time.Hour).Add(9*time.Hour))
	require.NoError(t, err)
	_, _, err = svc.ClockToggle(ctx, c.ID, now.Add(-3*time.Hour))
	require.NoError(t, err)

	items, meta, err := svc.FriendsFeed(ctx, a.ID, now, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.TotalCount)
	require.Len(t, items, 2)
	assert.Equal(t, c.ID, items[0].UserID)
	assert.Equal(t, int64(32400), *items[0].DurationInSeconds)
	assert.Equal(t, b.ID, items[1].UserID)
	assert.Equal(t, int64(25200), *items[1].DurationInSeconds)
}

func TestFriendsFeedFollowingNobody(t *testing.T) {
	_, userRepo, _, svc := setupSleepTest(t)
	a := createUser(t, userRepo, "alice")

	items, meta, err := svc.FriendsFeed(context.Background(), a.ID, time.Now(), pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int64(0), meta.TotalCount)
	assert.Equal(t, 0, meta.TotalPages)
}

func TestHistoryPagination(t *testing.T) {
	_, userRepo, _, svc := setupSleepTest(t)
	ctx := context.Background()
	a := createUser(t, userRepo, "alice")

	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		now = now.Add(10 * time.Hour)
		_, _, err := svc.ClockToggle(ctx, a.ID, now)
		require.NoError(t, err)
		now = now.Add(8 * time.Hour)
		_, _, err = svc.ClockToggle(ctx, a.ID, now)
		require.NoError(t, err)
	}

	items, meta, err := svc.History(ctx, a.ID, pagination.Params{Page: 2})
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.Equal(t, 2, meta.CurrentPage)
	assert.Equal(t, 20, meta.PerPage)
	assert.Equal(t, 2, meta.TotalPages)
	assert.Equal(t, int64(25), meta.TotalCount)
}
