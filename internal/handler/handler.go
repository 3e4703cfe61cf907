package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/user/moovie-social/internal/config"
	"github.com/user/moovie-social/internal/logger"
	"github.com/user/moovie-social/internal/middleware"
	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/repository"
	"github.com/user/moovie-social/internal/service"
	"github.com/user/moovie-social/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Repos    *repository.Repositories
	Config   *config.Config
	Movies   *service.MovieService
	Series   *service.SeriesService
	Library  *service.MediaLibrary
	Statuses *service.StatusService
	Comments *service.CommentService
	Social   *service.SocialService
}

// NewHandler 创建处理器
func NewHandler(repos *repository.Repositories, cfg *config.Config, catalog service.Catalog) *Handler {
	registerValidators()
	return &Handler{
		Repos:    repos,
		Config:   cfg,
		Movies:   service.NewMovieService(repos, catalog),
		Series:   service.NewSeriesService(repos, catalog),
		Library:  service.NewMediaLibrary(repos),
		Statuses: service.NewStatusService(repos),
		Comments: service.NewCommentService(repos),
		Social:   service.NewSocialService(repos),
	}
}

// registerValidators 注册自定义 binding 校验：mediastatus
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("mediastatus", func(fl validator.FieldLevel) bool {
		_, err := model.ParseMediaStatus(fl.Field().String())
		return err == nil
	})
}

// respondError 将业务错误映射为 HTTP 响应，原始错误只写日志
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		utils.BadRequest(c, "参数无效")
	case errors.Is(err, service.ErrSubjectRequired):
		utils.Error(c, http.StatusBadRequest, "subject_required", "必须且只能指定一个对象")
	case errors.Is(err, service.ErrSelfFollow):
		utils.Error(c, http.StatusBadRequest, "self_follow", "不能关注自己")
	case errors.Is(err, service.ErrAlreadyFollowing):
		utils.Error(c, http.StatusBadRequest, "already_following", "已经关注")
	case errors.Is(err, service.ErrNotFollowing):
		utils.Error(c, http.StatusBadRequest, "not_following", "尚未关注")
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrCatalogNotFound):
		utils.NotFound(c, "")
	case errors.Is(err, service.ErrForbidden):
		utils.Error(c, http.StatusForbidden, "forbidden", "无权操作")
	case errors.Is(err, service.ErrCatalogUnavailable):
		logger.Get().WithError(err).WithField("path", c.Request.URL.Path).Warn("[Handler] 目录服务不可用")
		utils.Error(c, http.StatusBadGateway, "catalog_unavailable", "影视目录服务暂不可用")
	default:
		logger.Get().WithError(err).WithFields(map[string]interface{}{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("request_id"),
		}).Error("[Handler] 内部错误")
		utils.InternalServerError(c, "")
	}
}

// paramID 解析路径中的数字 ID
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequest(c, "无效的 ID")
		return 0, false
	}
	return uint(id), true
}

// currentUser 已通过认证中间件的用户 ID
func currentUser(c *gin.Context) uint {
	return middleware.GetUserID(c)
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.Repos.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		logger.Get().WithError(err).Error("[Health] 数据库不可用")
		utils.Error(c, http.StatusServiceUnavailable, "unavailable", "数据库不可用")
		return
	}
	utils.Success(c, gin.H{"status": "ok"})
}
