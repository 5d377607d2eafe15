package services

import (
	"context"
	"errors"
	"testing"

	"servicesync-server/models"
)

func TestFeedbackAccessAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plumbing := f.service(t, "Plumbing")
	customer := f.user(t, models.RoleCustomer, nil)
	stranger := f.user(t, models.RoleCustomer, nil)
	store := f.user(t, models.RoleStoreOwner, &plumbing.ID)
	admin := f.user(t, models.RoleSuperAdmin, nil)

	req := f.openRequest(t, customer, &plumbing.ID)
	if _, _, err := f.lifecycle.Accept(ctx, actorOf(store), req.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, _, err := f.lifecycle.Complete(ctx, actorOf(store), req.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	fb, _, err := f.lifecycle.AttachFeedback(ctx, actorOf(customer), req.ID, FeedbackInput{Description: "tidy work", Rating: 3})
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}

	for _, u := range []*models.User{customer, store, admin} {
		if _, err := f.feedback.Get(ctx, actorOf(u), fb.ID); err != nil {
			t.Fatalf("%s should read feedback: %v", u.Role, err)
		}
	}
	if _, err := f.feedback.Get(ctx, actorOf(stranger), fb.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger: got %v, want ErrForbidden", err)
	}

	forStore, err := f.feedback.ListForStore(ctx, store.ID)
	if err != nil || len(forStore) != 1 {
		t.Fatalf("store feedback = %d, %v", len(forStore), err)
	}

	if err := f.feedback.Delete(ctx, fb.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := f.reload(t, req.ID); got.FeedbackID != nil {
		t.Fatalf("request still points at feedback %d", *got.FeedbackID)
	}
	if owner := f.owner(t, store.ID); owner.TotalRatings != 0 || owner.AverageRating != 0 {
		t.Fatalf("rating after delete = %d/%v", owner.TotalRatings, owner.AverageRating)
	}

	if _, _, err := f.lifecycle.AttachFeedback(ctx, actorOf(customer), req.ID, FeedbackInput{Description: "second try", Rating: 5}); err != nil {
		t.Fatalf("feedback after delete: %v", err)
	}
}
