package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"servicesync-server/models"
)

// LifecycleService applies request state transitions together with their
// list bookkeeping. Every transition is one database transaction whose
// status write is conditional on the state it was validated against.
type LifecycleService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLifecycleService(db *gorm.DB) *LifecycleService {
	return &LifecycleService{db: db, now: time.Now}
}

type FeedbackInput struct {
	Description string `json:"feedbackDescription"`
	Rating      int    `json:"feedbackRating"`
}

// RequestUpdate carries the editable request fields. Status is accepted
// only so that attempts to set it can be rejected.
type RequestUpdate struct {
	FullName       *string `json:"fullName" form:"fullName"`
	Email          *string `json:"email" form:"email"`
	ContactNumber  *string `json:"contactNumber" form:"contactNumber"`
	Landmark       *string `json:"landmark" form:"landmark"`
	Address        *string `json:"address" form:"address"`
	Date           *string `json:"date" form:"date"`
	ProblemDetails *string `json:"problemDetails" form:"problemDetails"`
	ServiceID      *uint   `json:"serviceID" form:"serviceID"`
	JobID          *uint   `json:"jobID" form:"jobID"`
	Status         *string `json:"status" form:"status"`

	ImagePublicID *string `json:"-" form:"-"`
	ImageURL      *string `json:"-" form:"-"`
}

// Accept moves an Open request to In-progress for the calling store owner
// and appends it to the owner's accepted list. Losing a race to another
// owner yields ErrInvalidTransition.
func (s *LifecycleService) Accept(ctx context.Context, actor Actor, requestID uint) (*models.Request, *models.User, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.First(&owner, actor.ID).Error; err != nil {
			return notFound("store owner", err)
		}
		var req models.Request
		if err := tx.First(&req, requestID).Error; err != nil {
			return notFound("request", err)
		}

		if req.ServiceID != nil && (owner.ServiceID == nil || *owner.ServiceID != *req.ServiceID) {
			return fmt.Errorf("%w: request %d is outside the store's service category", ErrForbidden, req.ID)
		}
		if err := CanTransition(req.Status, models.RequestStatusInProgress); err != nil {
			return err
		}

		now := s.now()
		res := tx.Model(&models.Request{}).
			Where("id = ? AND status = ?", req.ID, models.RequestStatusOpen).
			Updates(map[string]interface{}{
				"status":      models.RequestStatusInProgress,
				"store_id":    actor.ID,
				"accepted_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: request %d was already taken", ErrInvalidTransition, req.ID)
		}

		entry := models.AcceptedService{UserID: actor.ID, RequestID: req.ID, AcceptedAt: now}
		if err := tx.Create(&entry).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: request %d was already taken", ErrInvalidTransition, req.ID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("✅ Request %d accepted by store owner %d", requestID, actor.ID)
	return s.loadResult(ctx, requestID, actor.ID)
}

// Complete resolves an In-progress request assigned to the caller, moving
// it from the accepted list to the service log.
func (s *LifecycleService) Complete(ctx context.Context, actor Actor, requestID uint) (*models.Request, *models.User, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.Request
		if err := tx.First(&req, requestID).Error; err != nil {
			return notFound("request", err)
		}
		if err := CanTransition(req.Status, models.RequestStatusResolved); err != nil {
			return err
		}
		if !req.IsAssignedTo(actor.ID) {
			return fmt.Errorf("%w: request %d is not assigned to this store", ErrForbidden, req.ID)
		}

		now := s.now()
		res := tx.Model(&models.Request{}).
			Where("id = ? AND status = ? AND store_id = ?", req.ID, models.RequestStatusInProgress, actor.ID).
			Updates(map[string]interface{}{
				"status":      models.RequestStatusResolved,
				"resolved_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: request %d is no longer in progress", ErrInvalidTransition, req.ID)
		}

		if err := tx.Where("request_id = ?", req.ID).Delete(&models.AcceptedService{}).Error; err != nil {
			return err
		}
		entry := models.ServiceLog{UserID: actor.ID, RequestID: req.ID, LoggedAt: now}
		if err := tx.Create(&entry).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: request %d is already logged", ErrInvalidTransition, req.ID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("✅ Request %d resolved by store owner %d", requestID, actor.ID)
	return s.loadResult(ctx, requestID, actor.ID)
}

// AttachFeedback records the requestor's rating of a resolved request and
// refreshes the store's rating aggregate. A request takes feedback once.
func (s *LifecycleService) AttachFeedback(ctx context.Context, actor Actor, requestID uint, in FeedbackInput) (*models.Feedback, *models.Request, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Rating < 1 || in.Rating > 5 {
		return nil, nil, validationf("feedbackRating must be an integer from 1 to 5")
	}
	if in.Description == "" {
		return nil, nil, validationf("feedbackDescription is required")
	}

	var feedback models.Feedback
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.Request
		if err := tx.First(&req, requestID).Error; err != nil {
			return notFound("request", err)
		}
		if req.RequestorID != actor.ID {
			return fmt.Errorf("%w: only the requestor may rate request %d", ErrForbidden, req.ID)
		}
		if req.Status != models.RequestStatusResolved || req.StoreID == nil {
			return fmt.Errorf("%w: request %d is %s, feedback needs a resolved request", ErrInvalidState, req.ID, req.Status)
		}
		if req.FeedbackID != nil {
			return fmt.Errorf("%w: request %d already has feedback", ErrInvalidState, req.ID)
		}

		feedback = models.Feedback{
			StoreID:     *req.StoreID,
			RatedByID:   actor.ID,
			RequestID:   req.ID,
			Description: in.Description,
			Rating:      in.Rating,
		}
		if err := tx.Create(&feedback).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: request %d already has feedback", ErrInvalidState, req.ID)
			}
			return err
		}

		res := tx.Model(&models.Request{}).
			Where("id = ? AND feedback_id IS NULL", req.ID).
			Update("feedback_id", feedback.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: request %d already has feedback", ErrInvalidState, req.ID)
		}

		return refreshStoreRating(tx, *req.StoreID)
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("✅ Feedback %d attached to request %d", feedback.ID, requestID)
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	return &feedback, req, nil
}

// UpdateRequest edits the descriptive fields of a request. Status never
// changes here. The requestor may edit while the request is Open; a super
// admin may edit at any time. The returned string is the public id of an
// image the update replaced, if any.
func (s *LifecycleService) UpdateRequest(ctx context.Context, actor Actor, requestID uint, in RequestUpdate) (*models.Request, string, error) {
	if in.Status != nil {
		return nil, "", fmt.Errorf("%w: status changes only through accept-request and complete-request", ErrInvalidTransition)
	}

	var replaced string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.Request
		if err := tx.First(&req, requestID).Error; err != nil {
			return notFound("request", err)
		}
		if !actor.IsSuperAdmin() {
			if req.RequestorID != actor.ID {
				return fmt.Errorf("%w: role %q may not edit request %d", ErrForbidden, actor.Role, req.ID)
			}
			if req.Status != models.RequestStatusOpen {
				return fmt.Errorf("%w: request %d is %s and can no longer be edited", ErrInvalidState, req.ID, req.Status)
			}
		}

		reclassify := in.ServiceID != nil || in.JobID != nil
		if reclassify && req.Status != models.RequestStatusOpen {
			return fmt.Errorf("%w: request %d is %s and its service can no longer change", ErrInvalidState, req.ID, req.Status)
		}

		updates, err := requestUpdates(tx, in)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if in.ImagePublicID != nil && req.ImagePublicID != "" && req.ImagePublicID != *in.ImagePublicID {
			replaced = req.ImagePublicID
		}

		// The status guard keeps an edit from landing on a request that a
		// store owner accepted after it was read.
		q := tx.Model(&models.Request{}).Where("id = ?", req.ID)
		if !actor.IsSuperAdmin() || reclassify {
			q = q.Where("status = ?", models.RequestStatusOpen)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: request %d changed while editing", ErrInvalidState, req.ID)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, "", err
	}
	return req, replaced, nil
}

func requestUpdates(tx *gorm.DB, in RequestUpdate) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	for column, v := range map[string]*string{"full_name": in.FullName, "address": in.Address} {
		if v == nil {
			continue
		}
		if strings.TrimSpace(*v) == "" {
			return nil, validationf("%s cannot be empty", column)
		}
		updates[column] = strings.TrimSpace(*v)
	}
	optional := map[string]*string{
		"email":           in.Email,
		"contact_number":  in.ContactNumber,
		"landmark":        in.Landmark,
		"date":            in.Date,
		"problem_details": in.ProblemDetails,
		"image_public_id": in.ImagePublicID,
		"image_url":       in.ImageURL,
	}
	for column, v := range optional {
		if v != nil {
			updates[column] = strings.TrimSpace(*v)
		}
	}

	if in.ServiceID != nil {
		if err := tx.First(&models.Service{}, *in.ServiceID).Error; err != nil {
			return nil, notFound("service", err)
		}
		updates["service_id"] = *in.ServiceID
	}
	if in.JobID != nil {
		if err := tx.First(&models.Job{}, *in.JobID).Error; err != nil {
			return nil, notFound("job", err)
		}
		updates["job_id"] = *in.JobID
	}
	return updates, nil
}

// DeleteRequest removes a request with its list entries and feedback.
func (s *LifecycleService) DeleteRequest(ctx context.Context, requestID uint) (*models.Request, error) {
	var req models.Request
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, requestID).Error; err != nil {
			return notFound("request", err)
		}
		if err := tx.Where("request_id = ?", req.ID).Delete(&models.AcceptedService{}).Error; err != nil {
			return err
		}
		if err := tx.Where("request_id = ?", req.ID).Delete(&models.ServiceLog{}).Error; err != nil {
			return err
		}
		res := tx.Where("request_id = ?", req.ID).Delete(&models.Feedback{})
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Delete(&req).Error; err != nil {
			return err
		}
		if res.RowsAffected > 0 && req.StoreID != nil {
			return refreshStoreRating(tx, *req.StoreID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Request %d deleted", requestID)
	return &req, nil
}

func (s *LifecycleService) loadResult(ctx context.Context, requestID, ownerID uint) (*models.Request, *models.User, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	owner, err := loadStoreOwner(s.db.WithContext(ctx), ownerID)
	if err != nil {
		return nil, nil, err
	}
	return req, owner, nil
}

func (s *LifecycleService) loadRequest(ctx context.Context, requestID uint) (*models.Request, error) {
	var req models.Request
	if err := withRequestAssociations(s.db.WithContext(ctx)).First(&req, requestID).Error; err != nil {
		return nil, notFound("request", err)
	}
	return &req, nil
}

func withRequestAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Requestor").
		Preload("Store").
		Preload("Service").
		Preload("Job").
		Preload("Feedback")
}

func loadStoreOwner(db *gorm.DB, id uint) (*models.User, error) {
	var owner models.User
	err := db.
		Preload("Service").
		Preload("AcceptedServices", func(db *gorm.DB) *gorm.DB {
			return db.Order("accepted_at ASC, id ASC")
		}).
		Preload("ServiceLog", func(db *gorm.DB) *gorm.DB {
			return db.Order("logged_at ASC, id ASC")
		}).
		First(&owner, id).Error
	if err != nil {
		return nil, notFound("store owner", err)
	}
	return &owner, nil
}
