package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	ContactPending  = "pending"
	ContactAccepted = "accepted"
	ContactRejected = "rejected"
)

// Contact 联系人关系边（有向）。UserID 为发起方，ContactID 为接收方。
// PairMinID/PairMaxID 归一化无序对，唯一索引保证每对用户最多一条边。
type Contact struct {
	UUIDBase
	UserID    uint   `gorm:"index;not null" json:"userId"`
	User      User   `gorm:"foreignKey:UserID;references:ID;constraint:false" json:"user,omitempty"`
	ContactID uint   `gorm:"index;not null" json:"contactId"`
	Contact   User   `gorm:"foreignKey:ContactID;references:ID;constraint:false" json:"contact,omitempty"`
	Status    string `gorm:"size:20;default:'pending'" json:"status"`
	PairMinID uint   `gorm:"uniqueIndex:idx_contact_pair;not null" json:"-"`
	PairMaxID uint   `gorm:"uniqueIndex:idx_contact_pair;not null" json:"-"`
}

func (Contact) TableName() string {
	return "contacts"
}

func (c *Contact) BeforeSave(tx *gorm.DB) error {
	if c.UserID < c.ContactID {
		c.PairMinID, c.PairMaxID = c.UserID, c.ContactID
	} else {
		c.PairMinID, c.PairMaxID = c.ContactID, c.UserID
	}
	return nil
}

// ContactView 单一规范结果形态：从 viewer 视角看到的一条关系
type ContactView struct {
	EdgeID    string    `json:"edgeId"`
	Status    string    `json:"status"`
	Direction string    `json:"direction"` // sent | received
	CreatedAt time.Time `json:"createdAt"`
	Peer      User      `json:"peer"`
}
