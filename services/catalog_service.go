package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"servicesync-server/models"
)

// CatalogService administers services and the jobs offered under them.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

type ServiceInput struct {
	ServiceName string  `json:"serviceName"`
	JobIDs      *[]uint `json:"jobID"`
}

type JobInput struct {
	JobName        string  `json:"jobName"`
	JobDescription *string `json:"jobDescription"`
	ServiceIDs     *[]uint `json:"serviceID"`
}

func (s *CatalogService) CreateService(ctx context.Context, in ServiceInput) (*models.Service, error) {
	name := strings.TrimSpace(in.ServiceName)
	if name == "" {
		return nil, validationf("serviceName is required")
	}

	svc := models.Service{ServiceName: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&svc).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: service %q already exists", ErrConflict, name)
			}
			return err
		}
		if in.JobIDs != nil {
			return replaceJobs(tx, &svc, *in.JobIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Service %d created", svc.ID)
	return s.GetService(ctx, svc.ID)
}

func (s *CatalogService) ListServices(ctx context.Context) ([]models.Service, error) {
	var svcs []models.Service
	err := s.db.WithContext(ctx).Preload("Jobs").Preload("Stores").Order("service_name ASC").Find(&svcs).Error
	return svcs, err
}

func (s *CatalogService) GetService(ctx context.Context, id uint) (*models.Service, error) {
	var svc models.Service
	if err := s.db.WithContext(ctx).Preload("Jobs").Preload("Stores").First(&svc, id).Error; err != nil {
		return nil, notFound("service", err)
	}
	return &svc, nil
}

func (s *CatalogService) UpdateService(ctx context.Context, id uint, in ServiceInput) (*models.Service, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var svc models.Service
		if err := tx.First(&svc, id).Error; err != nil {
			return notFound("service", err)
		}
		if name := strings.TrimSpace(in.ServiceName); name != "" && name != svc.ServiceName {
			if err := tx.Model(&svc).Update("service_name", name).Error; err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: service %q already exists", ErrConflict, name)
				}
				return err
			}
		}
		if in.JobIDs != nil {
			return replaceJobs(tx, &svc, *in.JobIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetService(ctx, id)
}

// DeleteService refuses while store owners are still assigned to the service.
func (s *CatalogService) DeleteService(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var svc models.Service
		if err := tx.First(&svc, id).Error; err != nil {
			return notFound("service", err)
		}
		var owners int64
		if err := tx.Model(&models.User{}).Where("service_id = ?", id).Count(&owners).Error; err != nil {
			return err
		}
		if owners > 0 {
			return fmt.Errorf("%w: %d store owners still offer service %d", ErrConflict, owners, id)
		}
		if err := tx.Model(&svc).Association("Jobs").Clear(); err != nil {
			return err
		}
		return tx.Delete(&svc).Error
	})
}

func (s *CatalogService) CreateJob(ctx context.Context, in JobInput) (*models.Job, error) {
	name := strings.TrimSpace(in.JobName)
	if name == "" {
		return nil, validationf("jobName is required")
	}
	job := models.Job{JobName: name}
	if in.JobDescription != nil {
		job.JobDescription = strings.TrimSpace(*in.JobDescription)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&job).Error; err != nil {
			return err
		}
		if in.ServiceIDs != nil {
			return replaceServices(tx, &job, *in.ServiceIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Job %d created", job.ID)
	return s.GetJob(ctx, job.ID)
}

func (s *CatalogService) ListJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	err := s.db.WithContext(ctx).Preload("Services").Order("job_name ASC").Find(&jobs).Error
	return jobs, err
}

func (s *CatalogService) GetJob(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	if err := s.db.WithContext(ctx).Preload("Services").First(&job, id).Error; err != nil {
		return nil, notFound("job", err)
	}
	return &job, nil
}

func (s *CatalogService) UpdateJob(ctx context.Context, id uint, in JobInput) (*models.Job, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := tx.First(&job, id).Error; err != nil {
			return notFound("job", err)
		}
		updates := map[string]interface{}{}
		if name := strings.TrimSpace(in.JobName); name != "" {
			updates["job_name"] = name
		}
		if in.JobDescription != nil {
			updates["job_description"] = strings.TrimSpace(*in.JobDescription)
		}
		if len(updates) > 0 {
			if err := tx.Model(&job).Updates(updates).Error; err != nil {
				return err
			}
		}
		if in.ServiceIDs != nil {
			return replaceServices(tx, &job, *in.ServiceIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetJob(ctx, id)
}

func (s *CatalogService) DeleteJob(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := tx.First(&job, id).Error; err != nil {
			return notFound("job", err)
		}
		if err := tx.Model(&job).Association("Services").Clear(); err != nil {
			return err
		}
		return tx.Delete(&job).Error
	})
}

func replaceJobs(tx *gorm.DB, svc *models.Service, ids []uint) error {
	if len(ids) == 0 {
		return tx.Model(svc).Association("Jobs").Clear()
	}
	var jobs []models.Job
	if err := tx.Find(&jobs, ids).Error; err != nil {
		return err
	}
	if len(jobs) != len(uniqueIDs(ids)) {
		return validationf("one or more jobs do not exist")
	}
	return tx.Model(svc).Association("Jobs").Replace(jobs)
}

func replaceServices(tx *gorm.DB, job *models.Job, ids []uint) error {
	if len(ids) == 0 {
		return tx.Model(job).Association("Services").Clear()
	}
	var svcs []models.Service
	if err := tx.Find(&svcs, ids).Error; err != nil {
		return err
	}
	if len(svcs) != len(uniqueIDs(ids)) {
		return validationf("one or more services do not exist")
	}
	return tx.Model(job).Association("Services").Replace(svcs)
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
