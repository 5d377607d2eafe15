package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleCustomer   UserRole = "customer"
	RoleStoreOwner UserRole = "store_owner"
	RoleSuperAdmin UserRole = "super_admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleStoreOwner, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	ID            uint     `json:"id" gorm:"primaryKey"`
	Name          string   `json:"name" gorm:"size:255;not null"`
	Email         string   `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Address       string   `json:"address" gorm:"size:500"`
	ContactNumber string   `json:"contactNumber" gorm:"size:32"`
	Avatar        string   `json:"avatar" gorm:"size:500"`
	PasswordHash  string   `json:"-" gorm:"size:255;not null"`
	Role          UserRole `json:"role" gorm:"type:varchar(20);not null;default:'customer';index"`

	// ServiceID is the single category a store owner fulfils.
	ServiceID *uint    `json:"serviceID" gorm:"index"`
	Service   *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`

	TotalRatings  int     `json:"totalRatings" gorm:"default:0"`
	AverageRating float64 `json:"averageRating" gorm:"default:0"`

	AcceptedServices []AcceptedService `json:"acceptedServices,omitempty" gorm:"foreignKey:UserID"`
	ServiceLog       []ServiceLog      `json:"serviceLog,omitempty" gorm:"foreignKey:UserID"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	return nil
}

func (u *User) IsStoreOwner() bool {
	return u.Role == RoleStoreOwner
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// AcceptedRequestIDs lists the requests the user is working, oldest first.
func (u *User) AcceptedRequestIDs() []uint {
	ids := make([]uint, 0, len(u.AcceptedServices))
	for _, a := range u.AcceptedServices {
		ids = append(ids, a.RequestID)
	}
	return ids
}

func (u *User) LoggedRequestIDs() []uint {
	ids := make([]uint, 0, len(u.ServiceLog))
	for _, l := range u.ServiceLog {
		ids = append(ids, l.RequestID)
	}
	return ids
}
