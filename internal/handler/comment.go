package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/utils"
)

type createCommentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
	Movie   *uint  `json:"movie"`
	Series  *uint  `json:"series"`
	Post    *uint  `json:"post"`
}

type updateCommentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

// CreateComment 发表评论
func (h *Handler) CreateComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "评论内容不能为空")
		return
	}
	subject := model.Subject{Movie: req.Movie, Series: req.Series, Post: req.Post}
	comment, err := h.Comments.Create(c.Request.Context(), currentUser(c), req.Content, subject)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, comment)
}

// ListComments ?movie= / ?series= / ?post=
func (h *Handler) ListComments(c *gin.Context) {
	var subject model.Subject
	if err := c.ShouldBindQuery(&subject); err != nil {
		utils.BadRequest(c, "无效的查询参数")
		return
	}
	list, err := h.Comments.ListForSubject(c.Request.Context(), subject)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []*model.Comment{}
	}
	utils.Success(c, list)
}

func (h *Handler) UpdateComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "评论内容不能为空")
		return
	}
	comment, err := h.Comments.Update(c.Request.Context(), currentUser(c), id, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, comment)
}

func (h *Handler) DeleteComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Comments.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "已删除", nil)
}
