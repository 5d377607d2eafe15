package services

import (
	"context"
	"errors"
	"testing"

	"servicesync-server/models"
)

func TestCatalogServicesAndJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	desc := "Fix leaking pipes"
	leak, err := f.catalog.CreateJob(ctx, JobInput{JobName: "Leak repair", JobDescription: &desc})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	faucet, err := f.catalog.CreateJob(ctx, JobInput{JobName: "Faucet install"})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	jobs := []uint{leak.ID, faucet.ID}
	svc, err := f.catalog.CreateService(ctx, ServiceInput{ServiceName: " Plumbing ", JobIDs: &jobs})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	if svc.ServiceName != "Plumbing" || len(svc.Jobs) != 2 {
		t.Fatalf("service = %q with %d jobs", svc.ServiceName, len(svc.Jobs))
	}

	if _, err := f.catalog.CreateService(ctx, ServiceInput{ServiceName: "Plumbing"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate service: got %v, want ErrConflict", err)
	}
	if _, err := f.catalog.CreateService(ctx, ServiceInput{ServiceName: "  "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank service: got %v, want ErrValidation", err)
	}

	bogus := []uint{leak.ID, 999}
	if _, err := f.catalog.UpdateService(ctx, svc.ID, ServiceInput{JobIDs: &bogus}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown job: got %v, want ErrValidation", err)
	}

	none := []uint{}
	cleared, err := f.catalog.UpdateService(ctx, svc.ID, ServiceInput{JobIDs: &none})
	if err != nil {
		t.Fatalf("clear jobs: %v", err)
	}
	if len(cleared.Jobs) != 0 {
		t.Fatalf("jobs after clear = %d", len(cleared.Jobs))
	}

	services := []uint{svc.ID}
	linked, err := f.catalog.UpdateJob(ctx, faucet.ID, JobInput{ServiceIDs: &services})
	if err != nil {
		t.Fatalf("update job: %v", err)
	}
	if len(linked.Services) != 1 || linked.Services[0].ID != svc.ID {
		t.Fatalf("job services = %+v", linked.Services)
	}

	if err := f.catalog.DeleteJob(ctx, faucet.ID); err != nil {
		t.Fatalf("delete job: %v", err)
	}
	if _, err := f.catalog.GetJob(ctx, faucet.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted job: got %v", err)
	}
}

func TestDeleteServiceWithStoreOwners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plumbing := f.service(t, "Plumbing")
	store := f.user(t, models.RoleStoreOwner, &plumbing.ID)

	if err := f.catalog.DeleteService(ctx, plumbing.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("delete assigned service: got %v, want ErrConflict", err)
	}

	if _, err := f.users.Delete(ctx, store.ID); err != nil {
		t.Fatalf("delete store owner: %v", err)
	}
	if err := f.catalog.DeleteService(ctx, plumbing.ID); err != nil {
		t.Fatalf("delete service: %v", err)
	}
	if err := f.catalog.DeleteService(ctx, plumbing.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete twice: got %v, want ErrNotFound", err)
	}
}
