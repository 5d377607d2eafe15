package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"servicesync-server/models"
)

// RequestService creates requests and answers the read endpoints. Every
// "my requests" listing takes its scope from the actor, never from input.
type RequestService struct {
	db        *gorm.DB
	lifecycle *LifecycleService
}

func NewRequestService(db *gorm.DB, lifecycle *LifecycleService) *RequestService {
	return &RequestService{db: db, lifecycle: lifecycle}
}

type CreateRequestInput struct {
	FullName       string `json:"fullName" form:"fullName"`
	Email          string `json:"email" form:"email"`
	ContactNumber  string `json:"contactNumber" form:"contactNumber"`
	Landmark       string `json:"landmark" form:"landmark"`
	Address        string `json:"address" form:"address"`
	Date           string `json:"date" form:"date"`
	ProblemDetails string `json:"problemDetails" form:"problemDetails"`
	ServiceID      *uint  `json:"serviceID" form:"serviceID"`
	JobID          *uint  `json:"jobID" form:"jobID"`

	ImagePublicID string `json:"-" form:"-"`
	ImageURL      string `json:"-" form:"-"`
}

// Create opens a new request owned by actor. Status always starts Open.
func (s *RequestService) Create(ctx context.Context, actor Actor, in CreateRequestInput) (*models.Request, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Address = strings.TrimSpace(in.Address)
	if in.FullName == "" {
		return nil, validationf("fullName is required")
	}
	if in.Address == "" {
		return nil, validationf("address is required")
	}

	db := s.db.WithContext(ctx)
	if in.ServiceID != nil {
		if err := db.First(&models.Service{}, *in.ServiceID).Error; err != nil {
			return nil, notFound("service", err)
		}
	}
	if in.JobID != nil {
		if err := db.First(&models.Job{}, *in.JobID).Error; err != nil {
			return nil, notFound("job", err)
		}
	}

	req := models.Request{
		RequestorID:    actor.ID,
		ServiceID:      in.ServiceID,
		JobID:          in.JobID,
		FullName:       in.FullName,
		Email:          strings.TrimSpace(in.Email),
		ContactNumber:  strings.TrimSpace(in.ContactNumber),
		Landmark:       strings.TrimSpace(in.Landmark),
		Address:        in.Address,
		Date:           strings.TrimSpace(in.Date),
		ProblemDetails: strings.TrimSpace(in.ProblemDetails),
		ImagePublicID:  in.ImagePublicID,
		ImageURL:       in.ImageURL,
		Status:         models.RequestStatusOpen,
	}
	if err := db.Create(&req).Error; err != nil {
		return nil, err
	}

	log.Printf("✅ Request %d opened by customer %d", req.ID, actor.ID)
	return s.lifecycle.loadRequest(ctx, req.ID)
}

// Get returns a request to its requestor, its assigned store owner, an
// administrator, or any store owner while it is still Open.
func (s *RequestService) Get(ctx context.Context, actor Actor, id uint) (*models.Request, error) {
	req, err := s.lifecycle.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.IsSuperAdmin(),
		req.RequestorID == actor.ID,
		req.IsAssignedTo(actor.ID),
		actor.Role == models.RoleStoreOwner && req.Status == models.RequestStatusOpen:
		return req, nil
	}
	return nil, fmt.Errorf("%w: role %q may not view request %d", ErrForbidden, actor.Role, id)
}

func (s *RequestService) ListAll(ctx context.Context) ([]models.Request, error) {
	var reqs []models.Request
	err := withRequestAssociations(s.db.WithContext(ctx)).Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

// ListOpenForStore returns the Open requests in the store owner's service.
func (s *RequestService) ListOpenForStore(ctx context.Context, actor Actor) ([]models.Request, error) {
	var owner models.User
	if err := s.db.WithContext(ctx).First(&owner, actor.ID).Error; err != nil {
		return nil, notFound("store owner", err)
	}
	reqs := []models.Request{}
	if owner.ServiceID == nil {
		return reqs, nil
	}
	err := withRequestAssociations(s.db.WithContext(ctx)).
		Where("status = ? AND service_id = ?", models.RequestStatusOpen, *owner.ServiceID).
		Order("created_at ASC").
		Find(&reqs).Error
	return reqs, err
}

// ListForRequestor returns the caller's requests that are not yet resolved.
func (s *RequestService) ListForRequestor(ctx context.Context, actor Actor) ([]models.Request, error) {
	var reqs []models.Request
	err := withRequestAssociations(s.db.WithContext(ctx)).
		Where("requestor_id = ? AND status IN ?", actor.ID,
			[]models.RequestStatus{models.RequestStatusOpen, models.RequestStatusInProgress}).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// ListAccepted returns the store owner's accepted list in acceptance order,
// repairing the list first.
func (s *RequestService) ListAccepted(ctx context.Context, actor Actor) ([]models.Request, error) {
	if _, err := s.lifecycle.Reconcile(ctx, actor.ID); err != nil {
		return nil, err
	}
	var reqs []models.Request
	err := withRequestAssociations(s.db.WithContext(ctx)).
		Model(&models.Request{}).
		Select("requests.*").
		Joins("JOIN accepted_services ON accepted_services.request_id = requests.id").
		Where("accepted_services.user_id = ?", actor.ID).
		Order("accepted_services.accepted_at ASC, accepted_services.id ASC").
		Find(&reqs).Error
	return reqs, err
}

// ListCompleted returns the store owner's service log, oldest first,
// repairing the log first.
func (s *RequestService) ListCompleted(ctx context.Context, actor Actor) ([]models.Request, error) {
	if _, err := s.lifecycle.Reconcile(ctx, actor.ID); err != nil {
		return nil, err
	}
	var reqs []models.Request
	err := withRequestAssociations(s.db.WithContext(ctx)).
		Model(&models.Request{}).
		Select("requests.*").
		Joins("JOIN service_logs ON service_logs.request_id = requests.id").
		Where("service_logs.user_id = ?", actor.ID).
		Order("service_logs.logged_at ASC, service_logs.id ASC").
		Find(&reqs).Error
	return reqs, err
}
