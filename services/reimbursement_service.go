// services/reimbursement_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/avishkar-club/treasury_backend/models"
	"github.com/avishkar-club/treasury_backend/repositories"
)

// ReimbursementStore is the persistence the reimbursement workflow needs.
type ReimbursementStore interface {
	Insert(ctx context.Context, req *models.ReimbursementRequest) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ReimbursementRequest, error)
	ListByRequester(ctx context.Context, requesterID primitive.ObjectID, includeArchived bool) ([]models.ReimbursementRequest, error)
	ListByStatus(ctx context.Context, status models.Status) ([]models.ReimbursementRequest, error)
	ApplyTransition(ctx context.Context, id primitive.ObjectID, from models.Status, version int64, event models.StatusEvent, mut repositories.ReimbursementMutation) (*models.ReimbursementRequest, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	Archive(ctx context.Context, id primitive.ObjectID) error
}

// SubmitReimbursementInput is a member's claim for one specific bill.
type SubmitReimbursementInput struct {
	Description   string
	Amount        float64
	ContactNumber string
	BillProofRef  string
}

// ReimbursementService runs the expense claim workflow:
//
//	Pending -> Approved -> Paid -> Received
//	Pending -> Rejected (terminal; a new bill needs a new claim)
type ReimbursementService struct {
	claims   ReimbursementStore
	policy   *KindPolicy
	notifier Notifier
}

func NewReimbursementService(claims ReimbursementStore, notifier Notifier) *ReimbursementService {
	return &ReimbursementService{
		claims:   claims,
		policy:   ReimbursementPolicy(),
		notifier: notifier,
	}
}

func (s *ReimbursementService) Submit(ctx context.Context, actor models.Actor, in SubmitReimbursementInput) (*models.ReimbursementRequest, error) {
	if strings.TrimSpace(in.Description) == "" {
		return nil, validationErrf("description is required")
	}
	if in.Amount <= 0 {
		return nil, validationErrf("amount must be positive")
	}
	if strings.TrimSpace(in.BillProofRef) == "" {
		return nil, validationErrf("a bill proof is required")
	}

	now := time.Now().UTC()
	req := &models.ReimbursementRequest{
		RequesterID:   actor.ID,
		Description:   strings.TrimSpace(in.Description),
		Amount:        in.Amount,
		ContactNumber: strings.TrimSpace(in.ContactNumber),
		BillProofRef:  in.BillProofRef,
		Status:        models.StatusPending,
		History:       []models.StatusEvent{s.policy.SubmitEvent(actor)},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.claims.Insert(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Review approves or rejects a pending claim. A rejection must carry a reason;
// without one nothing is persisted, not even an audit entry.
func (s *ReimbursementService) Review(ctx context.Context, actor models.Actor, id primitive.ObjectID, approve bool, reason string) (*models.ReimbursementRequest, error) {
	req, err := s.claims.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "", "")
	}

	target := models.StatusApproved
	if !approve {
		target = models.StatusRejected
	}
	event, err := s.policy.Transition(TransitionInput{
		OwnerID: req.RequesterID,
		Current: req.Status,
		Target:  target,
		Actor:   actor,
		Reason:  reason,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.claims.ApplyTransition(ctx, req.ID, req.Status, req.Version, event, repositories.ReimbursementMutation{})
	if err != nil {
		return nil, s.translate(err, req.Status, target)
	}
	if approve {
		s.notify(req.RequesterID, "Reimbursement approved",
			fmt.Sprintf("Your claim %q (₹%.2f) was approved.", req.Description, req.Amount))
	} else {
		s.notify(req.RequesterID, "Reimbursement rejected",
			fmt.Sprintf("Your claim %q was rejected: %s", req.Description, event.Reason))
	}
	return updated, nil
}

// MarkPaid settles an approved claim. The treasurer must attach both a message
// and transfer proof so the member can see how and when the money moved.
func (s *ReimbursementService) MarkPaid(ctx context.Context, actor models.Actor, id primitive.ObjectID, message, proofRef string) (*models.ReimbursementRequest, error) {
	if strings.TrimSpace(message) == "" {
		return nil, validationErrf("a settlement message is required")
	}
	if strings.TrimSpace(proofRef) == "" {
		return nil, validationErrf("transfer proof is required")
	}

	req, err := s.claims.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "", "")
	}

	event, err := s.policy.Transition(TransitionInput{
		OwnerID:       req.RequesterID,
		Current:       req.Status,
		Target:        models.StatusPaid,
		Actor:         actor,
		AttachmentRef: proofRef,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.claims.ApplyTransition(ctx, req.ID, req.Status, req.Version, event, repositories.ReimbursementMutation{
		TreasurerResponse: &models.TreasurerResponse{
			Message:     strings.TrimSpace(message),
			ProofRef:    proofRef,
			RespondedBy: actor.ID,
			RespondedAt: event.At,
		},
	})
	if err != nil {
		return nil, s.translate(err, req.Status, models.StatusPaid)
	}
	s.notify(req.RequesterID, "Reimbursement paid",
		fmt.Sprintf("₹%.2f for %q has been transferred.", req.Amount, req.Description))
	return updated, nil
}

// ConfirmReceipt closes the claim once the member confirms the money arrived.
// Only the owning requester may confirm, and only from Paid.
func (s *ReimbursementService) ConfirmReceipt(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.ReimbursementRequest, error) {
	req, err := s.claims.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "", "")
	}

	event, err := s.policy.Transition(TransitionInput{
		OwnerID: req.RequesterID,
		Current: req.Status,
		Target:  models.StatusReceived,
		Actor:   actor,
	})
	if err != nil {
		return nil, err
	}

	receivedAt := event.At
	updated, err := s.claims.ApplyTransition(ctx, req.ID, req.Status, req.Version, event, repositories.ReimbursementMutation{
		ReceivedConfirmedAt: &receivedAt,
	})
	return updated, s.translate(err, req.Status, models.StatusReceived)
}

// Delete destroys a claim that never became a financial record and archives
// one that did.
func (s *ReimbursementService) Delete(ctx context.Context, actor models.Actor, id primitive.ObjectID) error {
	req, err := s.claims.FindByID(ctx, id)
	if err != nil {
		return s.translate(err, "", "")
	}
	if req.RequesterID != actor.ID {
		return ErrForbidden
	}
	mode, err := s.policy.DeleteModeFor(req.Status)
	if err != nil {
		return err
	}
	if mode == DeleteArchive {
		return s.translate(s.claims.Archive(ctx, req.ID), req.Status, "")
	}
	return s.translate(s.claims.SoftDelete(ctx, req.ID), req.Status, "")
}

func (s *ReimbursementService) List(ctx context.Context, actor models.Actor, includeArchived bool) ([]models.ReimbursementRequest, error) {
	return s.claims.ListByRequester(ctx, actor.ID, includeArchived)
}

// PendingQueue is the treasurer's unreviewed claims, oldest first.
func (s *ReimbursementService) PendingQueue(ctx context.Context, actor models.Actor) ([]models.ReimbursementRequest, error) {
	if actor.Role != models.RoleTreasurer {
		return nil, ErrForbidden
	}
	return s.claims.ListByStatus(ctx, models.StatusPending)
}

func (s *ReimbursementService) notify(userID primitive.ObjectID, title, message string) {
	if s.notifier != nil {
		s.notifier.NotifyDecision(userID, title, message)
	}
}

func (s *ReimbursementService) translate(err error, from, to models.Status) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrStaleDocument):
		return &InvalidStateTransitionError{Kind: models.KindReimbursement, From: from, To: to}
	}
	return err
}
