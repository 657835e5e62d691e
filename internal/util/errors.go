package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrSelfContact        = errors.New("不能添加自己为联系人")
	ErrDuplicateRequest   = errors.New("联系人请求已存在")
	ErrAlreadyContacts    = errors.New("已经是联系人了")
	ErrRequestNotFound    = errors.New("请求不存在")
	ErrRequestHandled     = errors.New("请求已处理")
	ErrNotRecipient       = errors.New("无权处理此请求")
	ErrNotSender          = errors.New("只有发起方可以撤销请求")
	ErrNotContacts        = errors.New("对方还不是你的联系人")
	ErrNotParticipant     = errors.New("非会话成员")
	ErrEmptyMessage       = errors.New("消息内容不能为空")
	ErrNotMessageSender   = errors.New("只能删除自己发送的消息")
	ErrInvalidUserCode    = errors.New("请输入有效的6位用户码")
	ErrAttachmentTooLarge = errors.New("附件大小超过10MB限制")
	ErrAttachmentType     = errors.New("不支持的附件类型")
)
