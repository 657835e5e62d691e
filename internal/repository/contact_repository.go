package repository

import (
	"context"
	"fmt"
	"time"

	"wispa_backend/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type ContactRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	ctx   context.Context
}

func NewContactRepository(db *gorm.DB, rdb *redis.Client) *ContactRepository {
	return &ContactRepository{
		DB:    db,
		Redis: rdb,
		ctx:   context.Background(),
	}
}

func (r *ContactRepository) Create(c *model.Contact) error {
	err := r.DB.Create(c).Error
	if err == nil {
		r.invalidateCache(c.UserID, c.ContactID)
	}
	return err
}

func (r *ContactRepository) FindByID(id string) (*model.Contact, error) {
	var c model.Contact
	err := r.DB.First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindPair 按无序对查找两用户之间的边（任意方向，任意状态）
func (r *ContactRepository) FindPair(a, b uint) (*model.Contact, error) {
	min, max := a, b
	if min > max {
		min, max = max, min
	}
	var c model.Contact
	err := r.DB.Where("pair_min_id = ? AND pair_max_id = ?", min, max).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateStatusFromPending 带 pending 守卫的状态更新，重复点击只生效一次。
// 返回实际更新的行数。
func (r *ContactRepository) UpdateStatusFromPending(id string, status string) (int64, error) {
	res := r.DB.Model(&model.Contact{}).
		Where("id = ? AND status = ?", id, model.ContactPending).
		Update("status", status)
	return res.RowsAffected, res.Error
}

// Rearm 将 rejected 边重置为 pending，并把发起方换成新的请求者
func (r *ContactRepository) Rearm(id string, requesterID, recipientID uint) error {
	return r.DB.Model(&model.Contact{}).
		Where("id = ? AND status = ?", id, model.ContactRejected).
		Updates(map[string]interface{}{
			"status":     model.ContactPending,
			"user_id":    requesterID,
			"contact_id": recipientID,
		}).Error
}

func (r *ContactRepository) Delete(c *model.Contact) error {
	err := r.DB.Delete(&model.Contact{}, "id = ?", c.ID).Error
	if err == nil {
		r.invalidateCache(c.UserID, c.ContactID)
	}
	return err
}

// AcceptedFor 已接受联系人视图：单条规范化查询，viewer 显式传入，
// 对端用户无论位于边的哪一侧都恰好出现一次。
func (r *ContactRepository) AcceptedFor(viewerID uint) ([]model.ContactView, error) {
	var edges []model.Contact
	err := r.DB.Preload("User").Preload("Contact").
		Where("status = ? AND (user_id = ? OR contact_id = ?)", model.ContactAccepted, viewerID, viewerID).
		Order("created_at ASC").
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	return viewsFor(viewerID, edges), nil
}

// PendingFor 待处理请求视图，direction 为 sent 或 received
func (r *ContactRepository) PendingFor(viewerID uint, direction string) ([]model.ContactView, error) {
	db := r.DB.Preload("User").Preload("Contact").
		Where("status = ?", model.ContactPending)

	if direction == "sent" {
		db = db.Where("user_id = ?", viewerID)
	} else {
		db = db.Where("contact_id = ?", viewerID)
	}

	var edges []model.Contact
	if err := db.Order("created_at DESC").Find(&edges).Error; err != nil {
		return nil, err
	}
	return viewsFor(viewerID, edges), nil
}

func viewsFor(viewerID uint, edges []model.Contact) []model.ContactView {
	views := make([]model.ContactView, 0, len(edges))
	for _, e := range edges {
		v := model.ContactView{
			EdgeID:    e.ID,
			Status:    e.Status,
			CreatedAt: e.CreatedAt,
		}
		if e.UserID == viewerID {
			v.Direction = "sent"
			v.Peer = e.Contact
		} else {
			v.Direction = "received"
			v.Peer = e.User
		}
		v.Peer.Password = ""
		views = append(views, v)
	}
	return views
}

// AcceptedIDs 已接受联系人的 ID 列表
func (r *ContactRepository) AcceptedIDs(viewerID uint) ([]uint, error) {
	var edges []model.Contact
	err := r.DB.Select("user_id, contact_id").
		Where("status = ? AND (user_id = ? OR contact_id = ?)", model.ContactAccepted, viewerID, viewerID).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(edges))
	for _, e := range edges {
		if e.UserID == viewerID {
			ids = append(ids, e.ContactID)
		} else {
			ids = append(ids, e.UserID)
		}
	}
	return ids, nil
}

// AcceptedIDsCached 已接受联系人 ID 列表 (带缓存)
func (r *ContactRepository) AcceptedIDsCached(viewerID uint) ([]uint, error) {
	if r.Redis == nil {
		return r.AcceptedIDs(viewerID)
	}

	key := fmt.Sprintf("wispa:relation:contacts:%d", viewerID)
	cached, err := r.Redis.SMembers(r.ctx, key).Result()
	if err == nil && len(cached) > 0 {
		var ids []uint
		for _, s := range cached {
			var id uint
			fmt.Sscanf(s, "%d", &id)
			if id > 0 {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	// 缓存失效，回源数据库
	ids, err := r.AcceptedIDs(viewerID)
	if err == nil && len(ids) > 0 {
		pipe := r.Redis.Pipeline()
		for _, id := range ids {
			pipe.SAdd(r.ctx, key, id)
		}
		pipe.Expire(r.ctx, key, 24*time.Hour)
		pipe.Exec(r.ctx)
	} else if err == nil {
		// 防止缓存穿透：存一个占位值并设置短过期时间
		r.Redis.SAdd(r.ctx, key, 0)
		r.Redis.Expire(r.ctx, key, 5*time.Minute)
	}
	return ids, err
}

// IsAccepted 两用户是否已互为联系人
func (r *ContactRepository) IsAccepted(a, b uint) (bool, error) {
	c, err := r.FindPair(a, b)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return c.Status == model.ContactAccepted, nil
}

func (r *ContactRepository) InvalidateCache(a, b uint) {
	r.invalidateCache(a, b)
}

func (r *ContactRepository) invalidateCache(a, b uint) {
	if r.Redis == nil {
		return
	}
	r.Redis.Del(r.ctx, fmt.Sprintf("wispa:relation:contacts:%d", a))
	r.Redis.Del(r.ctx, fmt.Sprintf("wispa:relation:contacts:%d", b))
}
