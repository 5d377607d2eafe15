package models

import (
	"time"
)

// Service is a catalog category such as plumbing or electrical.
type Service struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ServiceName string    `json:"serviceName" gorm:"type:varchar(200);not null;uniqueIndex"`
	Stores      []User    `json:"stores,omitempty" gorm:"foreignKey:ServiceID"`
	Jobs        []Job     `json:"jobs,omitempty" gorm:"many2many:service_jobs;"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Service) TableName() string {
	return "services"
}

// Job is a unit of work offered under one or more services.
type Job struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	JobName        string    `json:"jobName" gorm:"type:varchar(200);not null"`
	JobDescription string    `json:"jobDescription" gorm:"type:text"`
	Services       []Service `json:"services,omitempty" gorm:"many2many:service_jobs;"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Job) TableName() string {
	return "jobs"
}
