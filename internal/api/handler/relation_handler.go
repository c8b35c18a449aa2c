package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/sleepgraph/pkg/pagination"
	"github.com/d60-Lab/sleepgraph/pkg/response"
)

type followRequest struct {
	TargetUserID string `json:"target_user_id" binding:"required"`
}

// pageParams per_page 不传时留 0，由 service 按配置默认值补齐
func pageParams(c *gin.Context) pagination.Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "0"))
	return pagination.Params{Page: page, PerPage: perPage}
}

// Follow 关注目标用户
// @Summary 关注用户
// @Tags 关系链
// @Accept json
// @Produce json
// @Param user_id path string true "用户ID"
// @Param request body followRequest true "关注对象"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/users/{user_id}/follows [post]
func (h *Handler) Follow(c *gin.Context) {
	userID := c.Param("user_id")
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	created, err := h.relService.Follow(c.Request.Context(), userID, req.TargetUserID)
	if err != nil {
		renderError(c, err)
		return
	}
	if !created {
		// 已经关注过：no-op，不是内部错误
		response.UnprocessableEntity(c, "already following")
		return
	}
	response.Created(c, gin.H{"following": req.TargetUserID})
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Produce json
// @Param user_id path string true "用户ID"
// @Param target_user_id path string true "取关对象ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/users/{user_id}/follows/{target_user_id} [delete]
func (h *Handler) Unfollow(c *gin.Context) {
	userID := c.Param("user_id")
	targetID := c.Param("target_user_id")
	removed, err := h.relService.Unfollow(c.Request.Context(), userID, targetID)
	if err != nil {
		renderError(c, err)
		return
	}
	if !removed {
		response.UnprocessableEntity(c, "not following")
		return
	}
	response.Success(c, gin.H{"unfollowed": targetID})
}

// ListFollowing 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Produce json
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param per_page query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{user_id}/follows [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	userID := c.Param("user_id")
	list, meta, err := h.relService.ListFollowing(c.Request.Context(), userID, pageParams(c))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, gin.H{"pagination": meta, "list": list})
}

// ListFollowers 查询某用户的粉丝（来自冗余表）
// @Summary 查询粉丝列表
// @Tags 关系链
// @Produce json
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param per_page query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{user_id}/followers [get]
func (h *Handler) ListFollowers(c *gin.Context) {
	userID := c.Param("user_id")
	list, meta, err := h.relService.ListFans(c.Request.Context(), userID, pageParams(c))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, gin.H{"pagination": meta, "list": list})
}
