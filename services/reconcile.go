package services

import (
	"context"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"servicesync-server/models"
)

// ReconcileReport counts the list repairs made for one store owner.
type ReconcileReport struct {
	AcceptedAdded   int64 `json:"acceptedAdded"`
	AcceptedRemoved int64 `json:"acceptedRemoved"`
	LogAdded        int64 `json:"logAdded"`
	LogRemoved      int64 `json:"logRemoved"`
}

func (r ReconcileReport) Repaired() bool {
	return r.AcceptedAdded+r.AcceptedRemoved+r.LogAdded+r.LogRemoved > 0
}

// Reconcile makes a store owner's accepted list and service log agree with
// the status of the requests assigned to it. Request status is never
// changed; only the lists are repaired.
func (s *LifecycleService) Reconcile(ctx context.Context, storeID uint) (ReconcileReport, error) {
	var report ReconcileReport
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed, added, err := s.reconcileList(tx, storeID, models.RequestStatusInProgress, &models.AcceptedService{}, func(req models.Request) interface{} {
			at := s.now()
			if req.AcceptedAt != nil {
				at = *req.AcceptedAt
			}
			return &models.AcceptedService{UserID: storeID, RequestID: req.ID, AcceptedAt: at}
		})
		if err != nil {
			return err
		}
		report.AcceptedRemoved, report.AcceptedAdded = removed, added

		removed, added, err = s.reconcileList(tx, storeID, models.RequestStatusResolved, &models.ServiceLog{}, func(req models.Request) interface{} {
			at := s.now()
			if req.ResolvedAt != nil {
				at = *req.ResolvedAt
			}
			return &models.ServiceLog{UserID: storeID, RequestID: req.ID, LoggedAt: at}
		})
		if err != nil {
			return err
		}
		report.LogRemoved, report.LogAdded = removed, added
		return nil
	})
	if err != nil {
		return ReconcileReport{}, err
	}

	if report.Repaired() {
		log.Printf("⚠️ Repaired lists for store owner %d: %+v", storeID, report)
	}
	return report, nil
}

// reconcileList drops entries of list whose request is not in status for
// storeID, then adds entries for requests that are but have none.
func (s *LifecycleService) reconcileList(tx *gorm.DB, storeID uint, status models.RequestStatus, list interface{}, entryFor func(models.Request) interface{}) (removed, added int64, err error) {
	expected := tx.Model(&models.Request{}).Select("id").Where("store_id = ? AND status = ?", storeID, status)
	res := tx.Where("user_id = ? AND request_id NOT IN (?)", storeID, expected).Delete(list)
	if res.Error != nil {
		return 0, 0, res.Error
	}
	removed = res.RowsAffected

	listed := tx.Model(list).Select("request_id").Where("user_id = ?", storeID)
	var missing []models.Request
	if err := tx.Where("store_id = ? AND status = ? AND id NOT IN (?)", storeID, status, listed).Find(&missing).Error; err != nil {
		return removed, 0, err
	}

	for _, req := range missing {
		// An entry under another owner is stale by definition and would
		// block the unique request_id.
		if err := tx.Where("request_id = ? AND user_id <> ?", req.ID, storeID).Delete(list).Error; err != nil {
			return removed, added, err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entryFor(req))
		if res.Error != nil {
			return removed, added, res.Error
		}
		added += res.RowsAffected
	}
	return removed, added, nil
}
