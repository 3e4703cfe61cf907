package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/service"
	"github.com/user/moovie-social/internal/utils"
)

type searchRequest struct {
	Query string `json:"query" binding:"required,max=200"`
}

type importRequest struct {
	TMDBID int    `json:"tmdbId" binding:"required,gt=0"`
	Title  string `json:"title" binding:"max=300"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required,mediastatus"`
}

type commentRequest struct {
	Comment string `json:"comment" binding:"max=2000"`
}

// MediaHandler 电影与剧集共用的接口
type MediaHandler[T model.Media, PT model.MediaPtr[T]] struct {
	svc *service.MediaService[T, PT]
}

func NewMediaHandler[T model.Media, PT model.MediaPtr[T]](svc *service.MediaService[T, PT]) *MediaHandler[T, PT] {
	return &MediaHandler[T, PT]{svc: svc}
}

// Register 挂载到路由组，电影与剧集路径一致
func (h *MediaHandler[T, PT]) Register(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.POST("/search", h.Search)
	g.POST("/import", h.Import)
	g.GET("/:id", h.Get)
	g.PUT("/:id/status", h.UpdateStatus)
	g.PUT("/:id/comment", h.UpdateComment)
	g.POST("/:id/refresh", h.Refresh)
	g.DELETE("/:id", h.Delete)
}

// List 当前用户的记录
func (h *MediaHandler[T, PT]) List(c *gin.Context) {
	list, err := h.svc.ListForUser(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []PT{}
	}
	utils.Success(c, list)
}

// Search 按标题搜索并导入第一条结果
func (h *MediaHandler[T, PT]) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "搜索关键词不能为空")
		return
	}
	rec, err := h.svc.Search(c.Request.Context(), currentUser(c), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, rec)
}

// Import 按 TMDB ID 导入
func (h *MediaHandler[T, PT]) Import(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "无效的 TMDB ID")
		return
	}
	rec, err := h.svc.ImportOrFetch(c.Request.Context(), currentUser(c), req.TMDBID, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, rec)
}

func (h *MediaHandler[T, PT]) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rec, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, rec)
}

func (h *MediaHandler[T, PT]) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "状态必须为 favorite、pending 或 viewed")
		return
	}
	rec, err := h.svc.UpdateStatus(c.Request.Context(), currentUser(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, rec)
}

func (h *MediaHandler[T, PT]) UpdateComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "无效的请求数据")
		return
	}
	rec, err := h.svc.UpdateComment(c.Request.Context(), currentUser(c), id, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, rec)
}

// Refresh 重新从 TMDB 拉取详情
func (h *MediaHandler[T, PT]) Refresh(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rec, err := h.svc.Refresh(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, rec)
}

func (h *MediaHandler[T, PT]) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "已删除", nil)
}

// AllMedia 所有用户的电影与剧集
func (h *Handler) AllMedia(c *gin.Context) {
	items, err := h.Library.ListAllMedia(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, items)
}

// CommentedMedia 带短评的电影与剧集
func (h *Handler) CommentedMedia(c *gin.Context) {
	items, err := h.Library.ListWithComments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, items)
}
