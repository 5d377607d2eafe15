package models

import "time"

// AcceptedService is one entry in a store owner's accepted list.
// The unique index on RequestID keeps a request in at most one list.
type AcceptedService struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"userID" gorm:"not null;index"`
	RequestID  uint      `json:"requestID" gorm:"not null;uniqueIndex"`
	AcceptedAt time.Time `json:"acceptedAt" gorm:"not null;index"`
}

func (AcceptedService) TableName() string {
	return "accepted_services"
}

// ServiceLog is an append-only record of a request a store owner resolved.
type ServiceLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userID" gorm:"not null;index"`
	RequestID uint      `json:"requestID" gorm:"not null;uniqueIndex"`
	LoggedAt  time.Time `json:"loggedAt" gorm:"not null;index"`
}

func (ServiceLog) TableName() string {
	return "service_logs"
}
