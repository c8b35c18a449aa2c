package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/sleepgraph/internal/service"
	"github.com/d60-Lab/sleepgraph/pkg/response"
)

// CreateUser 新建用户
// @Summary 创建用户
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body service.CreateUserRequest true "用户信息"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Created(c, newUserView(u))
}

// GetUser 用户详情，附带关注/粉丝数
// @Summary 查询用户
// @Tags 用户
// @Produce json
// @Param user_id path string true "用户ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{user_id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	userID := c.Param("user_id")
	u, err := h.userService.Get(c.Request.Context(), userID)
	if err != nil {
		renderError(c, err)
		return
	}
	followers, err := h.relService.FollowerCount(c.Request.Context(), userID)
	if err != nil {
		renderError(c, err)
		return
	}
	following, err := h.relService.FollowingCount(c.Request.Context(), userID)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, gin.H{
		"user":            newUserView(u),
		"follower_count":  followers,
		"following_count": following,
	})
}

// ListUsers 用户列表
// @Summary 查询用户列表
// @Tags 用户
// @Produce json
// @Param page query int false "页码" default(1)
// @Param per_page query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	users, meta, err := h.userService.List(c.Request.Context(), pageParams(c))
	if err != nil {
		renderError(c, err)
		return
	}
	views := make([]userView, len(users))
	for i, u := range users {
		views[i] = newUserView(u)
	}
	response.Success(c, gin.H{"pagination": meta, "list": views})
}

// DeleteUser 删除用户（级联删除睡眠记录与关注边）
// @Summary 删除用户
// @Tags 用户
// @Produce json
// @Param user_id path string true "用户ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{user_id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	userID := c.Param("user_id")
	if err := h.userService.Delete(c.Request.Context(), userID); err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": userID})
}
