package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/utils"
)

type upsertStatusRequest struct {
	Movie  *uint  `json:"movie"`
	Series *uint  `json:"series"`
	Post   *uint  `json:"post"`
	Status string `json:"status" binding:"required,mediastatus"`
}

// UpsertStatus 创建或覆盖状态，新建返回 201
func (h *Handler) UpsertStatus(c *gin.Context) {
	var req upsertStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "状态必须为 favorite、pending 或 viewed")
		return
	}
	subject := model.Subject{Movie: req.Movie, Series: req.Series, Post: req.Post}
	row, created, err := h.Statuses.Upsert(c.Request.Context(), currentUser(c), subject, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	if created {
		utils.Created(c, row)
		return
	}
	utils.Success(c, row)
}

// GetStatus ?movie= 或 ?series=
func (h *Handler) GetStatus(c *gin.Context) {
	var subject model.Subject
	if err := c.ShouldBindQuery(&subject); err != nil {
		utils.BadRequest(c, "无效的查询参数")
		return
	}
	row, err := h.Statuses.Get(c.Request.Context(), currentUser(c), subject)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, row)
}

// ListStatuses 当前用户的全部状态
func (h *Handler) ListStatuses(c *gin.Context) {
	rows, err := h.Statuses.ListForUser(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if rows == nil {
		rows = []*model.Status{}
	}
	utils.Success(c, rows)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "状态必须为 favorite、pending 或 viewed")
		return
	}
	row, err := h.Statuses.Update(c.Request.Context(), currentUser(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, row)
}

func (h *Handler) DeleteStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Statuses.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "已删除", nil)
}
