package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/sleepgraph/internal/service"
	"github.com/d60-Lab/sleepgraph/pkg/response"
)

// ClockToggle 睡眠打卡：没有 in-progress 记录就 clock in，有就 clock out
// @Summary 睡眠打卡（clock in / clock out）
// @Tags 睡眠记录
// @Produce json
// @Param user_id path string true "用户ID"
// @Success 200 {object} response.Response
// @Success 201 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/users/{user_id}/sleep_records [post]
func (h *Handler) ClockToggle(c *gin.Context) {
	userID := c.Param("user_id")
	rec, action, err := h.sleepService.ClockToggle(c.Request.Context(), userID, time.Now())
	if err != nil {
		renderError(c, err)
		return
	}
	data := gin.H{"action": action.String(), "sleep_record": newSleepRecordView(rec)}
	if action == service.ClockedIn {
		response.Created(c, data)
		return
	}
	response.Success(c, data)
}

// SleepHistory 个人睡眠历史，按创建时间倒序
// @Summary 查询睡眠历史
// @Tags 睡眠记录
// @Produce json
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param per_page query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{user_id}/sleep_records [get]
func (h *Handler) SleepHistory(c *gin.Context) {
	userID := c.Param("user_id")
	records, meta, err := h.sleepService.History(c.Request.Context(), userID, pageParams(c))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, gin.H{"pagination": meta, "list": newSleepRecordViews(records)})
}

// FriendsFeed 关注对象近一周已完成的睡眠记录，按时长降序
// @Summary 查询好友睡眠动态
// @Tags 睡眠记录
// @Produce json
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param per_page query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{user_id}/sleep_records/friends [get]
func (h *Handler) FriendsFeed(c *gin.Context) {
	userID := c.Param("user_id")
	records, meta, err := h.sleepService.FriendsFeed(c.Request.Context(), userID, time.Now(), pageParams(c))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, gin.H{"pagination": meta, "list": newSleepRecordViews(records)})
}
