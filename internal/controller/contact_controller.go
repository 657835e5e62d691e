package controller

import (
	"errors"

	"wispa_backend/internal/service"
	"wispa_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContactController struct {
	ContactService *service.ContactService
	Hub            *service.PresenceHub
}

func NewContactController(contactService *service.ContactService, hub *service.PresenceHub) *ContactController {
	return &ContactController{
		ContactService: contactService,
		Hub:            hub,
	}
}

// SendRequestBody 目标用户：userId 和 userCode 二选一
type SendRequestBody struct {
	UserID   uint `json:"userId"`
	UserCode uint `json:"userCode"`
}

// SendRequest godoc
// @Summary 发送联系人请求
// @Description 按用户ID或6位用户码发送联系人请求；对方已发过请求时直接互相接受
// @Tags 联系人
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SendRequestBody true "目标用户"
// @Success 201 {object} util.Response{data=model.Contact} "已发送"
// @Failure 400 {object} util.Response "不能添加自己"
// @Failure 404 {object} util.Response "用户不存在"
// @Failure 409 {object} util.Response "请求已存在或已是联系人"
// @Router /api/contact-requests [post]
func (c *ContactController) SendRequest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SendRequestBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	recipientID := req.UserID
	if recipientID == 0 {
		var err error
		recipientID, err = c.ContactService.ResolveUserCode(req.UserCode)
		if err != nil {
			if errors.Is(err, util.ErrInvalidUserCode) {
				util.BadRequest(ctx, err.Error())
			} else {
				util.NotFound(ctx)
			}
			return
		}
	}

	edge, err := c.ContactService.SendRequest(claims.UserID, recipientID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSelfContact):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrUserNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrDuplicateRequest), errors.Is(err, util.ErrAlreadyContacts):
			util.Error(ctx, 409, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	if c.Hub != nil {
		c.Hub.PushToUsers([]uint{recipientID}, service.WSMessage{
			Type: "CONTACT_REQUEST",
			Data: gin.H{"userId": claims.UserID, "status": edge.Status},
		})
	}

	util.Created(ctx, edge)
}

type HandleRequestBody struct {
	Accept bool `json:"accept"`
}

// HandleRequest godoc
// @Summary 处理联系人请求
// @Description 接受或拒绝收到的联系人请求，仅接收方可操作
// @Tags 联系人
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "请求ID"
// @Param   body body HandleRequestBody true "是否接受"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "无权处理"
// @Failure 404 {object} util.Response "请求不存在"
// @Failure 409 {object} util.Response "请求已处理"
// @Router /api/contact-requests/{id} [put]
func (c *ContactController) HandleRequest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req HandleRequestBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.ContactService.HandleRequest(ctx.Param("id"), claims.UserID, req.Accept)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrRequestNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrNotRecipient):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrRequestHandled):
			util.Error(ctx, 409, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, nil)
}

// CancelRequest godoc
// @Summary 撤销联系人请求
// @Description 撤销自己发出的待处理请求
// @Tags 联系人
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "请求ID"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "只有发起方可以撤销"
// @Failure 404 {object} util.Response "请求不存在"
// @Router /api/contact-requests/{id} [delete]
func (c *ContactController) CancelRequest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	err := c.ContactService.CancelRequest(ctx.Param("id"), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrRequestNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrNotSender):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrRequestHandled):
			util.Error(ctx, 409, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, nil)
}

// ListContacts godoc
// @Summary 联系人列表
// @Description 当前用户所有已接受的联系人，附带在线状态
// @Tags 联系人
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/contacts [get]
func (c *ContactController) ListContacts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	views, err := c.ContactService.Contacts(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	type contactItem struct {
		EdgeID    string      `json:"edgeId"`
		Peer      interface{} `json:"peer"`
		IsOnline  bool        `json:"isOnline"`
		CreatedAt interface{} `json:"createdAt"`
	}
	items := make([]contactItem, 0, len(views))
	for _, v := range views {
		online := false
		if c.Hub != nil {
			online = c.Hub.IsUserOnline(v.Peer.ID)
		}
		items = append(items, contactItem{
			EdgeID:    v.EdgeID,
			Peer:      v.Peer,
			IsOnline:  online,
			CreatedAt: v.CreatedAt,
		})
	}

	util.Success(ctx, items)
}

// ListRequests godoc
// @Summary 待处理请求列表
// @Description 按方向列出待处理的联系人请求
// @Tags 联系人
// @Produce  json
// @Security ApiKeyAuth
// @Param   direction query string false "sent 或 received，默认 received"
// @Success 200 {object} util.Response{data=[]model.ContactView} "成功"
// @Router /api/contact-requests [get]
func (c *ContactController) ListRequests(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	views, err := c.ContactService.PendingRequests(claims.UserID, ctx.DefaultQuery("direction", "received"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, views)
}

// RemoveContact godoc
// @Summary 删除联系人
// @Description 删除与指定用户的联系人关系
// @Tags 联系人
// @Produce  json
// @Security ApiKeyAuth
// @Param   userId path int true "对方用户ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "对方不是你的联系人"
// @Router /api/contacts/{userId} [delete]
func (c *ContactController) RemoveContact(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	peerID, err := parseUintParam(ctx, "userId")
	if err != nil {
		util.BadRequest(ctx, "无效的用户ID")
		return
	}

	if err := c.ContactService.RemoveContact(claims.UserID, peerID); err != nil {
		if errors.Is(err, util.ErrNotContacts) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, nil)
}
