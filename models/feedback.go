package models

import (
	"time"
)

// Feedback is a customer's rating of a resolved request. It is never edited.
type Feedback struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	StoreID     uint      `json:"storeID" gorm:"not null;index"`
	Store       *User     `json:"store,omitempty" gorm:"foreignKey:StoreID"`
	RatedByID   uint      `json:"ratedByID" gorm:"not null;index"`
	RatedBy     *User     `json:"ratedBy,omitempty" gorm:"foreignKey:RatedByID"`
	RequestID   uint      `json:"requestID" gorm:"not null;uniqueIndex"`
	Description string    `json:"feedbackDescription" gorm:"type:text;not null"`
	Rating      int       `json:"feedbackRating" gorm:"type:int;not null;check:rating >= 1 AND rating <= 5"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Feedback) TableName() string { return "feedback" }
