package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/sleepgraph/internal/model"
	"github.com/d60-Lab/sleepgraph/internal/service"
	"github.com/d60-Lab/sleepgraph/pkg/response"
)

type Handler struct {
	userService  service.UserService
	relService   service.RelationshipService
	sleepService service.SleepService
}

func New(userService service.UserService, relService service.RelationshipService, sleepService service.SleepService) *Handler {
	return &Handler{userService: userService, relService: relService, sleepService: sleepService}
}

// renderError 统一错误到 HTTP 的映射：
// 用户不存在 404；并发打卡冲突 409；域校验失败 422；其余 500
func renderError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, "user not found")
	case errors.Is(err, service.ErrClockConflict):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrFollowSelf),
		errors.Is(err, model.ErrWakeBeforeSleep),
		errors.Is(err, model.ErrSleepTooShort),
		errors.As(err, &verrs):
		response.UnprocessableEntity(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

type userView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func newUserView(u *model.User) userView {
	return userView{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339)}
}

type sleepRecordView struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	SleepAt           string  `json:"sleep_at"`
	WakeUpAt          *string `json:"wake_up_at"`
	DurationInSeconds *int64  `json:"duration_in_seconds"`
	CreatedAt         string  `json:"created_at"`
}

func newSleepRecordView(r *model.SleepRecord) sleepRecordView {
	v := sleepRecordView{
		ID:                r.ID,
		UserID:            r.UserID,
		SleepAt:           r.SleepAt.UTC().Format(time.RFC3339),
		DurationInSeconds: r.DurationInSeconds,
		CreatedAt:         r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.WakeUpAt != nil {
		s := r.WakeUpAt.UTC().Format(time.RFC3339)
		v.WakeUpAt = &s
	}
	return v
}

func newSleepRecordViews(recs []*model.SleepRecord) []sleepRecordView {
	out := make([]sleepRecordView, len(recs))
	for i, r := range recs {
		out[i] = newSleepRecordView(r)
	}
	return out
}
