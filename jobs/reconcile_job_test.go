package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"servicesync-server/models"
	"servicesync-server/services"
)

type fakeOwners []models.User

func (f fakeOwners) ListByRole(_ context.Context, role models.UserRole) ([]models.User, error) {
	if role != models.RoleStoreOwner {
		return nil, errors.New("unexpected role")
	}
	return f, nil
}

type fakeReconciler struct {
	mu      sync.Mutex
	calls   []uint
	reports map[uint]services.ReconcileReport
	fail    map[uint]bool
}

func (f *fakeReconciler) Reconcile(_ context.Context, storeID uint) (services.ReconcileReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, storeID)
	if f.fail[storeID] {
		return services.ReconcileReport{}, errors.New("database is locked")
	}
	return f.reports[storeID], nil
}

func (f *fakeReconciler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestSweepVisitsEveryOwner(t *testing.T) {
	owners := fakeOwners{{ID: 1}, {ID: 2}, {ID: 3}}
	rec := &fakeReconciler{
		reports: map[uint]services.ReconcileReport{3: {AcceptedAdded: 1}},
		fail:    map[uint]bool{1: true},
	}

	job := NewReconcileJob(owners, rec, time.Minute)
	if got := job.Sweep(context.Background()); got != 1 {
		t.Fatalf("repaired = %d, want 1", got)
	}
	if rec.callCount() != 3 {
		t.Fatalf("reconcile calls = %v, want all three owners", rec.calls)
	}
}

func TestReconcileJobRunsUntilStopped(t *testing.T) {
	rec := &fakeReconciler{}
	job := NewReconcileJob(fakeOwners{{ID: 1}}, rec, 5*time.Millisecond)
	job.Start()

	deadline := time.Now().Add(2 * time.Second)
	for rec.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	job.Stop()
	job.Stop()

	if rec.callCount() == 0 {
		t.Fatal("job never swept")
	}
	after := rec.callCount()
	time.Sleep(20 * time.Millisecond)
	if rec.callCount() != after {
		t.Fatal("job kept sweeping after Stop")
	}
}

func TestDisabledReconcileJob(t *testing.T) {
	rec := &fakeReconciler{}
	job := NewReconcileJob(fakeOwners{{ID: 1}}, rec, 0)
	job.Start()
	job.Stop()
	if rec.callCount() != 0 {
		t.Fatalf("disabled job swept %d times", rec.callCount())
	}
}
