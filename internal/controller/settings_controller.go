package controller

import (
	"wispa_backend/internal/service"
	"wispa_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SettingsController struct {
	ProfileService *service.ProfileService
}

func NewSettingsController(profileService *service.ProfileService) *SettingsController {
	return &SettingsController{ProfileService: profileService}
}

// GetSettings godoc
// @Summary 获取用户设置
// @Description 当前用户的主题、通知、已读回执和在线状态设置
// @Tags 设置
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.UserSettings} "成功"
// @Router /api/settings [get]
func (c *SettingsController) GetSettings(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	settings, err := c.ProfileService.GetSettings(claims.UserID)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, settings)
}

// UpdateSettings godoc
// @Summary 更新用户设置
// @Description 更新设置项，未提供的字段不变
// @Tags 设置
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.SettingsUpdate true "设置更新"
// @Success 200 {object} util.Response{data=model.UserSettings} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/settings [put]
func (c *SettingsController) UpdateSettings(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SettingsUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	settings, err := c.ProfileService.UpdateSettings(claims.UserID, &req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, settings)
}
