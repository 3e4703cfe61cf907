package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/moovie-social/internal/utils"
)

// SearchUsers 按用户名模糊搜索
func (h *Handler) SearchUsers(c *gin.Context) {
	users, err := h.Social.SearchUsers(c.Request.Context(), c.Param("query"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, users)
}

// Feed 关注的人的动态
func (h *Handler) Feed(c *gin.Context) {
	items, err := h.Social.FeedFor(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, items)
}

func (h *Handler) Follow(c *gin.Context) {
	target, ok := paramID(c, "userId")
	if !ok {
		return
	}
	if err := h.Social.Follow(c.Request.Context(), currentUser(c), target); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "关注成功", nil)
}

func (h *Handler) Unfollow(c *gin.Context) {
	target, ok := paramID(c, "userId")
	if !ok {
		return
	}
	if err := h.Social.Unfollow(c.Request.Context(), currentUser(c), target); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "已取消关注", nil)
}

// Profile 用户主页
func (h *Handler) Profile(c *gin.Context) {
	id, ok := paramID(c, "userId")
	if !ok {
		return
	}
	profile, err := h.Social.Profile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, profile)
}
