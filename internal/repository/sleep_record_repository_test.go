package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/sleepgraph/internal/model"
)

// completedRecord 直接造一条已闭合的记录（绕过 toggle，仅测试用）
func completedRecord(id, userID string, sleepAt time.Time, duration time.Duration) *model.SleepRecord {
	wake := sleepAt.Add(duration)
	secs := int64(duration / time.Second)
	return &model.SleepRecord{
		ID:                id,
		UserID:            userID,
		SleepAt:           sleepAt,
		WakeUpAt:          &wake,
		DurationInSeconds: &secs,
		CreatedAt:         sleepAt,
	}
}

func TestFindInProgress(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSleepRecordRepository(db)
	ctx := context.Background()

	rec, err := repo.FindInProgress(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, rec)

	now := time.Now()
	require.NoError(t, repo.Create(ctx, &model.SleepRecord{UserID: "a", SleepAt: now}))
	// 别的用户的 in-progress 不影响 a
	require.NoError(t, repo.Create(ctx, &model.SleepRecord{UserID: "b", SleepAt: now}))

	rec, err = repo.FindInProgress(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "a", rec.UserID)
	assert.True(t, rec.InProgress())
}

func TestInProgressUniquePerUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSleepRecordRepository(db)
	ctx := context.Background()

	now := time.Now()
	first := &model.SleepRecord{UserID: "a", SleepAt: now}
	require.NoError(t, repo.Create(ctx, first))

	// 同一用户第二条 in-progress 撞 idx_sleep_one_in_progress
	err := repo.Create(ctx, &model.SleepRecord{UserID: "a", SleepAt: now.Add(time.Minute)})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// 部分索引只覆盖 wake_up_at IS NULL：闭合后可以再开新的一条
	require.NoError(t, first.Complete(now.Add(8*time.Hour)))
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Create(ctx, &model.SleepRecord{UserID: "a", SleepAt: now.Add(9*time.Hour)}))
}

func TestListByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSleepRecordRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := completedRecord(string(rune('a'+i)), "u1", base.Add(time.Duration(i)*24*time.Hour), 8*time.Hour)
		require.NoError(t, db.Create(rec).Error)
	}

	items, total, err := repo.ListByUser(ctx, "u1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 3)
	// 创建时间倒序：最新的排最前
	assert.Equal(t, "c", items[0].ID)
	assert.Equal(t, "a", items[2].ID)
}

func TestFeedFiltersWindowAndCompletion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSleepRecordRepository(db)
	ctx := context.Background()

	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	inWindow := completedRecord("r1", "b", now.Add(-2*24*time.Hour), 7*time.Hour)
	outOfWindow := completedRecord("r2", "b", now.Add(-10*24*time.Hour), 9*time.Hour)
	otherOwner := completedRecord("r3", "x", now.Add(-24*time.Hour), 8*time.Hour)
	inProgress := &model.SleepRecord{ID: "r4", UserID: "b", SleepAt: now.Add(-3 * time.Hour), CreatedAt: now}
	for _, rec := range []*model.SleepRecord{inWindow, outOfWindow, otherOwner, inProgress} {
		require.NoError(t, db.Create(rec).Error)
	}

	items, total, err := repo.Feed(ctx, SleepFeedQuery{
		OwnerIDs:      []string{"b", "c"},
		From:          weekAgo,
		To:            now,
		CompletedOnly: true,
		Limit:         20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "r1", items[0].ID)
}

func TestFeedSortAndTieBreak(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSleepRecordRepository(db)
	ctx := context.Background()

	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	records := []*model.SleepRecord{
		completedRecord("r-short", "b", now.Add(-24*time.Hour), 6*time.Hour),
		completedRecord("r-long", "c", now.Add(-48*time.Hour), 9*time.Hour),
		// 时长并列：按 id 升序，分页不抖动
		completedRecord("r-tie-2", "b", now.Add(-30*time.Hour), 7*time.Hour),
		completedRecord("r-tie-1", "c", now.Add(-36*time.Hour), 7*time.Hour),
	}
	for _, rec := range records {
		require.NoError(t, db.Create(rec).Error)
	}

	items, total, err := repo.Feed(ctx, SleepFeedQuery{
		OwnerIDs:      []string{"b", "c"},
		From:          now.Add(-7 * 24 * time.Hour),
		To:            now,
		CompletedOnly: true,
		Limit:         20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, items, 4)
	assert.Equal(t, "r-long", items[0].ID)
	assert.Equal(t, "r-tie-1", items[1].ID)
	assert.Equal(t, "r-tie-2", items[2].ID)
	assert.Equal(t, "r-short", items[3].ID)

	// duration 非增
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, *items[i-1].DurationInSeconds, *items[i].DurationInSeconds)
	}

	// 第二页
	items, total, err = repo.Feed(ctx, SleepFeedQuery{
		OwnerIDs:      []string{"b", "c"},
		From:          now.Add(-7 * 24 * time.Hour),
		To:            now,
		CompletedOnly: true,
		Offset:        3,
		Limit:         3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, items, 1)
	assert.Equal(t, "r-short", items[0].ID)
}

func TestFeedEmptyOwnerSet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSleepRecordRepository(db)
	ctx := context.Background()

	items, total, err := repo.Feed(ctx, SleepFeedQuery{
		OwnerIDs: nil,
		From:     time.Now().Add(-7 * 24 * time.Hour),
		To:       time.Now(),
		Limit:    20,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}
