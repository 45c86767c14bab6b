// services/reconciliation_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/avishkar-club/treasury_backend/models"
)

func seedAwaiting(t *testing.T, store *fakePaymentStore, amount float64, createdAt time.Time) *models.FundPaymentRequest {
	t.Helper()
	owner := primitive.NewObjectID()
	req := &models.FundPaymentRequest{
		RequesterID:   owner,
		Period:        "January 2026",
		Amount:        amount,
		ReferenceCode: FormatReference(models.KindFundPayment, OwnerShort(owner), createdAt),
		Status:        models.StatusAwaitingVerification,
		CreatedAt:     createdAt,
	}
	if err := store.Insert(context.Background(), req); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return req
}

func TestPendingQueueGroupsByAmount(t *testing.T) {
	store := newFakePaymentStore()
	service := NewReconciliationService(store)
	treasurer := models.Actor{ID: primitive.NewObjectID(), Role: models.RoleTreasurer}

	base := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	seedAwaiting(t, store, 500, base)
	seedAwaiting(t, store, 500, base.Add(time.Minute))
	seedAwaiting(t, store, 300, base.Add(2*time.Minute))

	groups, err := service.PendingQueue(context.Background(), treasurer)
	if err != nil {
		t.Fatalf("PendingQueue: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}

	// Sorted ascending by amount.
	if groups[0].Amount != 300 || groups[1].Amount != 500 {
		t.Fatalf("group order = %.0f, %.0f", groups[0].Amount, groups[1].Amount)
	}

	// Only the shared amount is flagged.
	if groups[0].Flagged {
		t.Error("singleton group flagged")
	}
	if !groups[1].Flagged {
		t.Error("two requests for the same amount must be flagged")
	}
	if len(groups[1].Requests) != 2 {
		t.Errorf("flagged group size = %d, want 2", len(groups[1].Requests))
	}

	// The treasurer view must carry unmasked references.
	for _, g := range groups {
		for _, req := range g.Requests {
			if _, err := ParseReference(req.ReferenceCode); err != nil {
				t.Errorf("treasurer queue reference masked or corrupt: %s", req.ReferenceCode)
			}
		}
	}
}

func TestPendingQueueForbiddenForMembers(t *testing.T) {
	service := NewReconciliationService(newFakePaymentStore())
	member := models.Actor{ID: primitive.NewObjectID(), Role: models.RoleMember}

	if _, err := service.PendingQueue(context.Background(), member); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member queue = %v, want ErrForbidden", err)
	}
}

func TestPendingQueueEmptyWhenNothingAwaiting(t *testing.T) {
	store := newFakePaymentStore()
	service := NewReconciliationService(store)
	treasurer := models.Actor{ID: primitive.NewObjectID(), Role: models.RoleTreasurer}

	groups, err := service.PendingQueue(context.Background(), treasurer)
	if err != nil {
		t.Fatalf("PendingQueue: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("groups = %d, want 0", len(groups))
	}
}
