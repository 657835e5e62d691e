package controller

import (
	"errors"

	"wispa_backend/internal/service"
	"wispa_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	ChatService *service.ChatService
	Hub         *service.PresenceHub
}

func NewChatController(chatService *service.ChatService, hub *service.PresenceHub) *ChatController {
	return &ChatController{
		ChatService: chatService,
		Hub:         hub,
	}
}

type StartChatBody struct {
	UserID uint `json:"userId" binding:"required"`
}

// StartChat godoc
// @Summary 发起会话
// @Description 与联系人发起会话（find-or-create）；非联系人时自动发送联系人请求
// @Tags 会话
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body StartChatBody true "对方用户"
// @Success 200 {object} util.Response{data=service.StartChatResult} "成功"
// @Failure 400 {object} util.Response "不能与自己会话"
// @Router /api/chats [post]
func (c *ChatController) StartChat(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req StartChatBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ChatService.StartChat(claims.UserID, req.UserID)
	if err != nil {
		if errors.Is(err, util.ErrSelfContact) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, result)
}

// ListChats godoc
// @Summary 会话列表
// @Description 当前用户的会话列表，按最近活跃排序，附带最新消息和未读数
// @Tags 会话
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码，默认1"
// @Param   limit query int false "每页数量，默认20"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/chats [get]
func (c *ChatController) ListChats(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, limit := parsePagination(ctx)
	summaries, total, err := c.ChatService.ListChats(claims.UserID, limit, (page-1)*limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  summaries,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetMessages godoc
// @Summary 消息历史
// @Description 按时间升序返回消息，before 游标用于向前翻页
// @Tags 会话
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "会话ID"
// @Param   limit query int false "数量，默认50"
// @Param   before query string false "游标消息ID"
// @Success 200 {object} util.Response{data=[]model.Message} "成功"
// @Failure 403 {object} util.Response "非会话成员"
// @Router /api/chats/{id}/messages [get]
func (c *ChatController) GetMessages(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	_, limit := parsePagination(ctx)
	msgs, err := c.ChatService.History(claims.UserID, ctx.Param("id"), limit, ctx.Query("before"))
	if err != nil {
		if errors.Is(err, util.ErrNotParticipant) {
			util.Forbidden(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, msgs)
}

type SendMessageBody struct {
	Content        string `json:"content"`
	AttachmentURL  string `json:"attachmentUrl"`
	AttachmentType string `json:"attachmentType"`
}

// SendMessage godoc
// @Summary 发送消息
// @Description 发送文本或附件消息，实时推送给对方
// @Tags 会话
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "会话ID"
// @Param   body body SendMessageBody true "消息内容"
// @Success 201 {object} util.Response{data=model.Message} "已发送"
// @Failure 400 {object} util.Response "消息内容为空"
// @Failure 403 {object} util.Response "非会话成员"
// @Router /api/chats/{id}/messages [post]
func (c *ChatController) SendMessage(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SendMessageBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	msg, err := c.ChatService.SendMessage(claims.UserID, ctx.Param("id"), req.Content, req.AttachmentURL, req.AttachmentType)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrNotParticipant):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrEmptyMessage):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, msg)
}

// UploadAttachment godoc
// @Summary 上传聊天附件
// @Description 上传附件（最大10MB，图片和PDF），返回可用于发送消息的URL
// @Tags 会话
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "会话ID"
// @Param   file formData file true "附件文件"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "文件过大或类型不支持"
// @Failure 403 {object} util.Response "非会话成员"
// @Router /api/chats/{id}/attachments [post]
func (c *ChatController) UploadAttachment(ctx *gin.Context) {
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

	url, mimeType, err := c.ChatService.UploadAttachment(ctx.Request.Context(), claims.UserID, ctx.Param("id"), file, fileHeader.Size, fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrNotParticipant):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrAttachmentTooLarge), errors.Is(err, util.ErrAttachmentType):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{
		"attachmentUrl":  url,
		"attachmentType": mimeType,
	})
}

// DeleteMessage godoc
// @Summary 删除消息
// @Description 软删除自己发送的消息，双方都不再可见
// @Tags 会话
// @Produce  json
// @Security ApiKeyAuth
// @Param   messageId path string true "消息ID"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "只能删除自己发送的消息"
// @Router /api/messages/{messageId} [delete]
func (c *ChatController) DeleteMessage(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.ChatService.DeleteMessage(claims.UserID, ctx.Param("messageId")); err != nil {
		if errors.Is(err, util.ErrNotMessageSender) {
			util.Forbidden(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, nil)
}

type MarkReadBody struct {
	MessageID string `json:"messageId" binding:"required"`
}

// MarkRead godoc
// @Summary 标记已读
// @Description 将已读位置推进到指定消息
// @Tags 会话
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "会话ID"
// @Param   body body MarkReadBody true "已读到的消息"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "非会话成员"
// @Router /api/chats/{id}/read [put]
func (c *ChatController) MarkRead(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req MarkReadBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ChatService.MarkRead(claims.UserID, ctx.Param("id"), req.MessageID); err != nil {
		if errors.Is(err, util.ErrNotParticipant) {
			util.Forbidden(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, nil)
}

// HandleWebSocket godoc
// @Summary WebSocket 连接
// @Description 建立实时连接，接收新消息、在线状态和输入提示
// @Tags 会话
// @Security ApiKeyAuth
// @Router /api/ws [get]
func (c *ChatController) HandleWebSocket(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, claims.UserID)
}
