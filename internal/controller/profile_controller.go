package controller

import (
	"errors"
	"strconv"

	"wispa_backend/internal/repository"
	"wispa_backend/internal/service"
	"wispa_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	ProfileService *service.ProfileService
	ContactRepo    *repository.ContactRepository
	Hub            *service.PresenceHub
}

func NewProfileController(profileService *service.ProfileService, contactRepo *repository.ContactRepository, hub *service.PresenceHub) *ProfileController {
	return &ProfileController{
		ProfileService: profileService,
		ContactRepo:    contactRepo,
		Hub:            hub,
	}
}

// GetProfile godoc
// @Summary 获取当前用户资料
// @Description 获取当前用户的个人资料，含主题设置
// @Tags 资料
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.Profile} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/profile [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	profile, err := c.ProfileService.GetProfile(claims.UserID)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, profile)
}

// UpdateProfile godoc
// @Summary 更新个人资料
// @Description 更新昵称、状态签名和主题，未提供的字段不变
// @Tags 资料
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ProfileUpdate true "资料更新"
// @Success 200 {object} util.Response{data=service.Profile} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/profile [put]
func (c *ProfileController) UpdateProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ProfileUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	profile, err := c.ProfileService.UpdateProfile(claims.UserID, &req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, profile)
}

// UploadAvatar godoc
// @Summary 上传头像
// @Description 上传头像图片（最大5MB），覆盖旧头像
// @Tags 资料
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "头像文件"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "文件过大或类型不支持"
// @Router /api/profile/avatar [post]
func (c *ProfileController) UploadAvatar(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "请选择要上传的文件")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	url, err := c.ProfileService.UploadAvatar(ctx.Request.Context(), claims.UserID, file, fileHeader.Size, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, util.ErrAttachmentTooLarge) || errors.Is(err, util.ErrAttachmentType) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"avatarUrl": url})
}

// GetUserCard godoc
// @Summary 用户公开名片
// @Description 指定用户的公开资料（昵称、头像、签名、最后活跃时间）
// @Tags 资料
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/users/{id} [get]
func (c *ProfileController) GetUserCard(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	userID, err := parseUintParam(ctx, "id")
	if err != nil {
		util.BadRequest(ctx, "无效的用户ID")
		return
	}

	user, err := c.ProfileService.PublicCard(userID)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, user)
}

// SearchByCode godoc
// @Summary 按用户码查找用户
// @Description 通过6位用户码查找用户，返回公开名片和关系状态
// @Tags 资料
// @Produce  json
// @Security ApiKeyAuth
// @Param   code query int true "6位用户码"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "用户码格式错误"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/users/search [get]
func (c *ProfileController) SearchByCode(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	code, err := strconv.ParseUint(ctx.Query("code"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, util.ErrInvalidUserCode.Error())
		return
	}

	user, status, err := c.ProfileService.SearchByCode(claims.UserID, uint(code), c.ContactRepo)
	if err != nil {
		if errors.Is(err, util.ErrInvalidUserCode) {
			util.BadRequest(ctx, err.Error())
			return
		}
		// 无匹配是空结果，不是错误
		util.Success(ctx, gin.H{
			"user":     nil,
			"status":   "none",
			"isOnline": false,
		})
		return
	}

	online := false
	if c.Hub != nil && status == "accepted" {
		online = c.Hub.IsUserOnline(user.ID)
	}

	util.Success(ctx, gin.H{
		"user":     user,
		"status":   status,
		"isOnline": online,
	})
}
