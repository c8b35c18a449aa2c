package model

import (
	"errors"
	"time"
)

var (
	ErrWakeBeforeSleep = errors.New("wake_up_at must be after sleep_at")
	ErrSleepTooShort   = errors.New("duration_in_seconds must be positive")
	ErrAlreadyComplete = errors.New("sleep record already completed")
)

// SleepRecord 一条睡眠记录。wake_up_at 为空表示正在睡（in-progress），
// duration_in_seconds 只在补全 wake_up_at 时派生，不允许单独写入。
// 每个用户同一时刻至多一条 in-progress 记录：ClockToggle 的单一写路径
// 加上 idx_sleep_one_in_progress 部分唯一索引兜底（并发各建一条时
// 后提交者撞唯一键，见 service.SleepService）。
type SleepRecord struct {
	ID                string     `gorm:"primaryKey;type:varchar(36)"`
	UserID            string     `gorm:"type:varchar(36);not null;index:idx_sleep_user_created;index:idx_sleep_user_wake;index:idx_sleep_feed;index:idx_sleep_one_in_progress,unique,where:wake_up_at IS NULL"`
	SleepAt           time.Time  `gorm:"not null;index:idx_sleep_at;index:idx_sleep_feed"`
	WakeUpAt          *time.Time `gorm:"index:idx_sleep_user_wake;index:idx_sleep_feed"`
	DurationInSeconds *int64     `gorm:"index:idx_sleep_duration;index:idx_sleep_feed"`
	// idx_sleep_feed = (user_id, sleep_at, wake_up_at, duration_in_seconds)
	// 覆盖好友动态查询的谓词
	CreatedAt time.Time `gorm:"index:idx_sleep_user_created"`
	UpdatedAt time.Time
}

func (SleepRecord) TableName() string { return "sleep_records" }

func (r *SleepRecord) Completed() bool  { return r.WakeUpAt != nil }
func (r *SleepRecord) InProgress() bool { return r.WakeUpAt == nil }

// Complete 闭合记录：写入 wake_up_at 并派生 duration（整秒截断）。
// wake 必须严格晚于 sleep_at；截断后 duration 仍须为正，
// 不到一秒的打卡（截断为 0）同样拒绝。
func (r *SleepRecord) Complete(wake time.Time) error {
	if r.Completed() {
		return ErrAlreadyComplete
	}
	if !wake.After(r.SleepAt) {
		return ErrWakeBeforeSleep
	}
	d := int64(wake.Sub(r.SleepAt) / time.Second)
	if d <= 0 {
		return ErrSleepTooShort
	}
	r.WakeUpAt = &wake
	r.DurationInSeconds = &d
	return nil
}
