package jobs

import (
	"context"
	"log"
	"time"

	"servicesync-server/models"
	"servicesync-server/services"
)

// StoreOwnerLister lists the users whose request lists are swept.
type StoreOwnerLister interface {
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// Reconciler repairs one store owner's accepted list and service log.
type Reconciler interface {
	Reconcile(ctx context.Context, storeID uint) (services.ReconcileReport, error)
}

// ReconcileJob periodically repairs every store owner's lists so drift is
// fixed even for owners who never open their dashboards.
type ReconcileJob struct {
	users      StoreOwnerLister
	reconciler Reconciler
	interval   time.Duration
	stopChan   chan struct{}
	done       chan struct{}
}

func NewReconcileJob(users StoreOwnerLister, reconciler Reconciler, interval time.Duration) *ReconcileJob {
	return &ReconcileJob{
		users:      users,
		reconciler: reconciler,
		interval:   interval,
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins the sweep. A non-positive interval leaves the job idle.
func (j *ReconcileJob) Start() {
	if j.interval <= 0 {
		close(j.done)
		log.Println("⚠️ Reconcile job disabled")
		return
	}
	go j.run()
	log.Printf("🚀 Reconcile job started (every %v)", j.interval)
}

// Stop ends the sweep and waits for a pass in flight to finish.
func (j *ReconcileJob) Stop() {
	select {
	case <-j.stopChan:
	default:
		close(j.stopChan)
	}
	<-j.done
	log.Println("🛑 Reconcile job stopped")
}

func (j *ReconcileJob) run() {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Sweep(context.Background())
		case <-j.stopChan:
			return
		}
	}
}

// Sweep reconciles every store owner once and returns how many had lists
// repaired. Failures for one owner do not stop the pass.
func (j *ReconcileJob) Sweep(ctx context.Context) int {
	owners, err := j.users.ListByRole(ctx, models.RoleStoreOwner)
	if err != nil {
		log.Printf("❌ Error listing store owners: %v", err)
		return 0
	}

	repaired := 0
	for _, owner := range owners {
		report, err := j.reconciler.Reconcile(ctx, owner.ID)
		if err != nil {
			log.Printf("❌ Failed to reconcile store owner %d: %v", owner.ID, err)
			continue
		}
		if report.Repaired() {
			repaired++
		}
	}
	if repaired > 0 {
		log.Printf("⏰ Reconcile sweep repaired lists for %d store owners", repaired)
	}
	return repaired
}
