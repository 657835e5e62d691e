package service

import (
	"errors"

	"wispa_backend/internal/model"
	"wispa_backend/internal/repository"
	"wispa_backend/internal/util"

	"gorm.io/gorm"
)

type ContactService struct {
	ContactRepo *repository.ContactRepository
	UserRepo    *repository.UserRepository
}

func NewContactService(contactRepo *repository.ContactRepository, userRepo *repository.UserRepository) *ContactService {
	return &ContactService{
		ContactRepo: contactRepo,
		UserRepo:    userRepo,
	}
}

// ResolveUserCode 按6位用户码解析用户ID，供按码直接发请求使用
func (s *ContactService) ResolveUserCode(code uint) (uint, error) {
	if code < 100000 || code > 999999 {
		return 0, util.ErrInvalidUserCode
	}
	user, err := s.UserRepo.FindByUserCode(code)
	if err != nil {
		return 0, util.ErrUserNotFound
	}
	return user.ID, nil
}

// SendRequest 发送联系人请求。按无序对查现有边决定动作：
// 无边则新建 pending；对方已发过请求则直接互相接受；
// rejected 边重置为 pending 并把发起方换成本次请求者。
func (s *ContactService) SendRequest(requesterID, recipientID uint) (*model.Contact, error) {
	if requesterID == recipientID {
		return nil, util.ErrSelfContact
	}

	if _, err := s.UserRepo.FindByID(recipientID); err != nil {
		return nil, util.ErrUserNotFound
	}

	edge, err := s.ContactRepo.FindPair(requesterID, recipientID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		edge = &model.Contact{
			UserID:    requesterID,
			ContactID: recipientID,
			Status:    model.ContactPending,
		}
		if err := s.ContactRepo.Create(edge); err != nil {
			return nil, err
		}
		return edge, nil
	}

	switch edge.Status {
	case model.ContactAccepted:
		return nil, util.ErrAlreadyContacts

	case model.ContactPending:
		if edge.UserID == requesterID {
			return nil, util.ErrDuplicateRequest
		}
		// 对方已经发过请求，视为互相确认
		if _, err := s.ContactRepo.UpdateStatusFromPending(edge.ID, model.ContactAccepted); err != nil {
			return nil, err
		}
		s.ContactRepo.InvalidateCache(edge.UserID, edge.ContactID)
		edge.Status = model.ContactAccepted
		return edge, nil

	case model.ContactRejected:
		if err := s.ContactRepo.Rearm(edge.ID, requesterID, recipientID); err != nil {
			return nil, err
		}
		edge.Status = model.ContactPending
		edge.UserID = requesterID
		edge.ContactID = recipientID
		return edge, nil
	}

	return nil, util.ErrDuplicateRequest
}

// HandleRequest 接受或拒绝请求，仅接收方可操作
func (s *ContactService) HandleRequest(edgeID string, viewerID uint, accept bool) error {
	edge, err := s.ContactRepo.FindByID(edgeID)
	if err != nil {
		return util.ErrRequestNotFound
	}

	if edge.ContactID != viewerID {
		return util.ErrNotRecipient
	}

	if edge.Status != model.ContactPending {
		return util.ErrRequestHandled
	}

	status := model.ContactRejected
	if accept {
		status = model.ContactAccepted
	}

	// pending 守卫保证并发下只生效一次
	rows, err := s.ContactRepo.UpdateStatusFromPending(edgeID, status)
	if err != nil {
		return err
	}
	if rows == 0 {
		return util.ErrRequestHandled
	}

	if accept {
		s.ContactRepo.InvalidateCache(edge.UserID, edge.ContactID)
	}
	return nil
}

// CancelRequest 撤销自己发出的待处理请求
func (s *ContactService) CancelRequest(edgeID string, viewerID uint) error {
	edge, err := s.ContactRepo.FindByID(edgeID)
	if err != nil {
		return util.ErrRequestNotFound
	}

	if edge.UserID != viewerID {
		return util.ErrNotSender
	}

	if edge.Status != model.ContactPending {
		return util.ErrRequestHandled
	}

	return s.ContactRepo.Delete(edge)
}

// RemoveContact 删除已接受的联系人，双方任意一侧都可发起
func (s *ContactService) RemoveContact(viewerID, peerID uint) error {
	edge, err := s.ContactRepo.FindPair(viewerID, peerID)
	if err != nil {
		return util.ErrNotContacts
	}

	if edge.Status != model.ContactAccepted {
		return util.ErrNotContacts
	}

	return s.ContactRepo.Delete(edge)
}

func (s *ContactService) Contacts(viewerID uint) ([]model.ContactView, error) {
	return s.ContactRepo.AcceptedFor(viewerID)
}

func (s *ContactService) PendingRequests(viewerID uint, direction string) ([]model.ContactView, error) {
	if direction != "sent" {
		direction = "received"
	}
	return s.ContactRepo.PendingFor(viewerID, direction)
}
