package models

import (
	"time"
)

// RequestStatus is the lifecycle state of a service request.
type RequestStatus string

const (
	RequestStatusOpen       RequestStatus = "Open"
	RequestStatusInProgress RequestStatus = "In-progress"
	RequestStatusResolved   RequestStatus = "Resolved"
)

// Request is a customer-raised service ticket.
type Request struct {
	ID          uint  `json:"id" gorm:"primaryKey"`
	RequestorID uint  `json:"requestorID" gorm:"not null;index"`
	Requestor   *User `json:"requestor,omitempty" gorm:"foreignKey:RequestorID"`

	// StoreID stays nil until a store owner accepts the request.
	StoreID *uint `json:"storeID" gorm:"index"`
	Store   *User `json:"store,omitempty" gorm:"foreignKey:StoreID"`

	ServiceID *uint    `json:"serviceID" gorm:"index"`
	Service   *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
	JobID     *uint    `json:"jobID" gorm:"index"`
	Job       *Job     `json:"job,omitempty" gorm:"foreignKey:JobID"`

	FeedbackID *uint     `json:"feedbackID"`
	Feedback   *Feedback `json:"feedback,omitempty" gorm:"foreignKey:FeedbackID"`

	FullName       string `json:"fullName" gorm:"size:255;not null"`
	Email          string `json:"email" gorm:"size:255"`
	ContactNumber  string `json:"contactNumber" gorm:"size:32"`
	Landmark       string `json:"landmark" gorm:"size:255"`
	Address        string `json:"address" gorm:"size:500;not null"`
	Date           string `json:"date" gorm:"size:64"`
	ProblemDetails string `json:"problemDetails" gorm:"type:text"`

	ImagePublicID string `json:"imagePublicID" gorm:"size:255"`
	ImageURL      string `json:"imageURL" gorm:"size:500"`

	Status     RequestStatus `json:"status" gorm:"type:varchar(20);not null;default:'Open';index"`
	AcceptedAt *time.Time    `json:"acceptedAt"`
	ResolvedAt *time.Time    `json:"resolvedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Request) TableName() string {
	return "requests"
}

// IsAssignedTo reports whether userID is the accepting store owner.
func (r *Request) IsAssignedTo(userID uint) bool {
	return r.StoreID != nil && *r.StoreID == userID
}
