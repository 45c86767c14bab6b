// services/credential_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/avishkar-club/treasury_backend/models"
)

type credentialFixture struct {
	service  *CredentialService
	store    *fakeCredentialStore
	users    *fakeUserStore
	notifier *fakeNotifier
	member   models.Actor
	treasury models.Actor
}

func newCredentialFixture(t *testing.T) *credentialFixture {
	t.Helper()
	memberID := primitive.NewObjectID()
	users := newFakeUserStore(&models.User{ID: memberID, Email: "member@club.in", JoinYear: "2023"})
	store := newFakeCredentialStore()
	notifier := &fakeNotifier{}
	return &credentialFixture{
		service:  NewCredentialService(store, users, notifier),
		store:    store,
		users:    users,
		notifier: notifier,
		member:   models.Actor{ID: memberID, Role: models.RoleMember},
		treasury: models.Actor{ID: primitive.NewObjectID(), Role: models.RoleTreasurer},
	}
}

func TestSubmitStoresOnlyHash(t *testing.T) {
	fx := newCredentialFixture(t)

	req, err := fx.service.Submit(context.Background(), fx.member, "hunter2hunter2")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if req.Status != models.StatusPending {
		t.Fatalf("status = %s, want pending", req.Status)
	}
	if req.CandidateHash == "hunter2hunter2" || req.CandidateHash == "" {
		t.Fatal("candidate must be stored as a hash")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(req.CandidateHash), []byte("hunter2hunter2")); err != nil {
		t.Errorf("stored hash does not match candidate: %v", err)
	}
}

func TestSubmitRejectsShortCandidate(t *testing.T) {
	fx := newCredentialFixture(t)

	if _, err := fx.service.Submit(context.Background(), fx.member, "short"); !IsValidation(err) {
		t.Fatalf("short candidate = %v, want ValidationError", err)
	}
}

func TestSubmitWhilePendingReturnsExisting(t *testing.T) {
	fx := newCredentialFixture(t)
	ctx := context.Background()

	first, err := fx.service.Submit(ctx, fx.member, "firstcandidate")
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	second, err := fx.service.Submit(ctx, fx.member, "secondcandidate")
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second submit created a new request: %s vs %s", second.ID.Hex(), first.ID.Hex())
	}

	queue, err := fx.service.PendingQueue(ctx, fx.treasury)
	if err != nil {
		t.Fatalf("PendingQueue: %v", err)
	}
	if len(queue) != 1 {
		t.Errorf("queue size = %d, want 1", len(queue))
	}
}

func TestApproveAppliesCandidate(t *testing.T) {
	fx := newCredentialFixture(t)
	ctx := context.Background()

	req, _ := fx.service.Submit(ctx, fx.member, "newpassword1")
	approved, err := fx.service.Review(ctx, fx.treasury, req.ID, true, "")
	if err != nil {
		t.Fatalf("Review approve: %v", err)
	}
	if approved.Status != models.StatusApproved {
		t.Fatalf("status = %s, want approved", approved.Status)
	}
	if approved.CandidateHash != "" {
		t.Error("candidate hash must be cleared after the decision")
	}

	applied, ok := fx.users.passwords[fx.member.ID]
	if !ok {
		t.Fatal("approved candidate was not applied to the user record")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(applied), []byte("newpassword1")); err != nil {
		t.Errorf("applied hash does not match candidate: %v", err)
	}

	// Member can submit a fresh reset afterwards.
	next, err := fx.service.Submit(ctx, fx.member, "anotherpassword")
	if err != nil {
		t.Fatalf("Submit after approval: %v", err)
	}
	if next.ID == req.ID {
		t.Error("new submission reused the decided request")
	}
}

func TestApproveFailedApplyKeepsRequestPending(t *testing.T) {
	fx := newCredentialFixture(t)
	ctx := context.Background()

	req, _ := fx.service.Submit(ctx, fx.member, "newpassword1")

	fx.users.updateErr = errors.New("user collection unavailable")
	if _, err := fx.service.Review(ctx, fx.treasury, req.ID, true, ""); err == nil {
		t.Fatal("Review must surface the failed password apply")
	}

	// The decision did not commit: the request is still pending with its
	// candidate intact, so the treasurer can decide it again.
	stored, err := fx.store.FindByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.Status != models.StatusPending {
		t.Fatalf("status = %s, want pending after failed apply", stored.Status)
	}
	if stored.CandidateHash == "" {
		t.Fatal("candidate hash must survive a failed apply")
	}
	if fx.notifier.count() != 0 {
		t.Errorf("notifications sent = %d, want 0", fx.notifier.count())
	}

	fx.users.updateErr = nil
	approved, err := fx.service.Review(ctx, fx.treasury, req.ID, true, "")
	if err != nil {
		t.Fatalf("retried Review: %v", err)
	}
	if approved.Status != models.StatusApproved {
		t.Fatalf("status = %s, want approved on retry", approved.Status)
	}
	if _, ok := fx.users.passwords[fx.member.ID]; !ok {
		t.Error("retried approval did not apply the candidate")
	}
}

func TestRejectDiscardsCandidate(t *testing.T) {
	fx := newCredentialFixture(t)
	ctx := context.Background()

	req, _ := fx.service.Submit(ctx, fx.member, "newpassword1")
	rejected, err := fx.service.Review(ctx, fx.treasury, req.ID, false, "request the change in person first")
	if err != nil {
		t.Fatalf("Review reject: %v", err)
	}
	if rejected.Status != models.StatusRejected {
		t.Fatalf("status = %s, want rejected", rejected.Status)
	}
	if rejected.CandidateHash != "" {
		t.Error("rejected candidate must be discarded")
	}
	if rejected.RejectionReason != "request the change in person first" {
		t.Errorf("rejection reason = %q", rejected.RejectionReason)
	}
	if _, ok := fx.users.passwords[fx.member.ID]; ok {
		t.Error("rejected candidate must never touch the user record")
	}

	// Both decisions are terminal.
	if _, err := fx.service.Review(ctx, fx.treasury, req.ID, true, ""); !IsInvalidTransition(err) {
		t.Fatalf("re-review = %v, want InvalidStateTransitionError", err)
	}
}

func TestCredentialDelete(t *testing.T) {
	fx := newCredentialFixture(t)
	ctx := context.Background()

	pending, _ := fx.service.Submit(ctx, fx.member, "newpassword1")

	stranger := models.Actor{ID: primitive.NewObjectID(), Role: models.RoleMember}
	if err := fx.service.Delete(ctx, stranger, pending.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign delete = %v, want ErrForbidden", err)
	}

	if err := fx.service.Delete(ctx, fx.member, pending.ID); err != nil {
		t.Fatalf("delete pending: %v", err)
	}
	if _, err := fx.store.FindByID(ctx, pending.ID); err == nil {
		t.Fatal("deleted request still visible")
	}

	// A rejected request is deletable, an approved one is not.
	rejected, _ := fx.service.Submit(ctx, fx.member, "newpassword2")
	if _, err := fx.service.Review(ctx, fx.treasury, rejected.ID, false, "come to the office"); err != nil {
		t.Fatalf("Review reject: %v", err)
	}
	if err := fx.service.Delete(ctx, fx.member, rejected.ID); err != nil {
		t.Fatalf("delete rejected: %v", err)
	}

	approved, _ := fx.service.Submit(ctx, fx.member, "newpassword3")
	if _, err := fx.service.Review(ctx, fx.treasury, approved.ID, true, ""); err != nil {
		t.Fatalf("Review approve: %v", err)
	}
	if err := fx.service.Delete(ctx, fx.member, approved.ID); !IsInvalidTransition(err) {
		t.Fatalf("delete approved = %v, want InvalidStateTransitionError", err)
	}
}

func TestCredentialReviewRequiresTreasurer(t *testing.T) {
	fx := newCredentialFixture(t)
	ctx := context.Background()

	req, _ := fx.service.Submit(ctx, fx.member, "newpassword1")
	if _, err := fx.service.Review(ctx, fx.member, req.ID, true, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member review = %v, want ErrForbidden", err)
	}
	if _, err := fx.service.PendingQueue(ctx, fx.member); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member queue = %v, want ErrForbidden", err)
	}
}
