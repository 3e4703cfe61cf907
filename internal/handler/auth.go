package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/moovie-social/internal/logger"
	"github.com/user/moovie-social/internal/middleware"
	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/utils"
	"gorm.io/gorm"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Username string `json:"username" binding:"omitempty,min=2,max=50"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register 注册
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "无效的请求数据")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 未填写用户名时截取邮箱 @ 前的内容
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	ctx := c.Request.Context()
	existing, err := h.Repos.User.FindByEmail(ctx, email)
	if err != nil {
		respondError(c, err)
		return
	}
	if existing != nil {
		utils.Error(c, http.StatusConflict, "email_taken", "该邮箱已被注册")
		return
	}

	user, err := h.Repos.User.Create(ctx, email, username, req.Password)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		utils.Error(c, http.StatusConflict, "username_taken", "该用户名或邮箱已被使用")
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Get().WithField("user_id", user.ID).Info("[Auth] 新用户注册")

	token, err := middleware.GenerateToken(user.ID, user.Username, user.Role, h.Config.AppSecret, h.Config.JWTExpiry)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, authResponse{Token: token, User: user})
}

// Login 登录
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "无效的请求数据")
		return
	}

	user, err := h.Repos.User.FindByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil || !h.Repos.User.CheckPassword(user, req.Password) {
		utils.Unauthorized(c, "邮箱或密码错误")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Username, user.Role, h.Config.AppSecret, h.Config.JWTExpiry)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, authResponse{Token: token, User: user})
}
