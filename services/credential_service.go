// services/credential_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/avishkar-club/treasury_backend/models"
	"github.com/avishkar-club/treasury_backend/repositories"
)

// CredentialStore is the persistence the credential-reset workflow needs.
type CredentialStore interface {
	Insert(ctx context.Context, req *models.CredentialResetRequest) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.CredentialResetRequest, error)
	FindPendingByRequester(ctx context.Context, requesterID primitive.ObjectID) (*models.CredentialResetRequest, error)
	ListPending(ctx context.Context) ([]models.CredentialResetRequest, error)
	ApplyTransition(ctx context.Context, id primitive.ObjectID, from models.Status, version int64, event models.StatusEvent, mut repositories.CredentialMutation) (*models.CredentialResetRequest, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
}

const minCandidateLength = 8

// CredentialService runs the password-reset approval workflow. The raw
// candidate never leaves this function boundary unhashed and is never stored;
// only its bcrypt hash rides on the request until the treasurer decides.
type CredentialService struct {
	resets   CredentialStore
	users    UserStore
	policy   *KindPolicy
	notifier Notifier
}

func NewCredentialService(resets CredentialStore, users UserStore, notifier Notifier) *CredentialService {
	return &CredentialService{
		resets:   resets,
		users:    users,
		policy:   CredentialResetPolicy(),
		notifier: notifier,
	}
}

// Submit requests a reset to the given candidate password. A second submit
// while one is pending returns the existing request rather than creating a
// duplicate, so client retries are harmless.
func (s *CredentialService) Submit(ctx context.Context, actor models.Actor, candidate string) (*models.CredentialResetRequest, error) {
	if len(candidate) < minCandidateLength {
		return nil, validationErrf("candidate password must be at least %d characters", minCandidateLength)
	}

	if existing, err := s.resets.FindPendingByRequester(ctx, actor.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(candidate), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash candidate credential: %w", err)
	}

	event := s.policy.SubmitEvent(actor)
	req := &models.CredentialResetRequest{
		RequesterID:   actor.ID,
		CandidateHash: string(hash),
		Status:        models.StatusPending,
		History:       []models.StatusEvent{event},
		CreatedAt:     event.At,
		UpdatedAt:     event.At,
	}
	if err := s.resets.Insert(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// Lost a concurrent submit; the earlier pending request wins.
			if winner, ferr := s.resets.FindPendingByRequester(ctx, actor.ID); ferr == nil {
				return winner, nil
			}
			return nil, &DuplicateActiveRequestError{Kind: models.KindCredentialReset, Key: actor.ID.Hex()}
		}
		return nil, err
	}
	return req, nil
}

// Review decides a pending reset. Approval applies the candidate hash to the
// user record immediately; rejection discards it with a mandatory reason. The
// stored candidate is cleared on either decision.
func (s *CredentialService) Review(ctx context.Context, actor models.Actor, id primitive.ObjectID, approve bool, reason string) (*models.CredentialResetRequest, error) {
	req, err := s.resets.FindByID(ctx, id)
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

	// The password is applied before the status commit. If the user write
	// fails the request stays pending with its candidate intact, so the
	// treasurer can simply decide it again; the reverse order would strand a
	// terminally approved request whose password never changed.
	if approve {
		if err := s.users.UpdatePassword(ctx, req.RequesterID, req.CandidateHash); err != nil {
			return nil, fmt.Errorf("apply approved credential: %w", err)
		}
	}

	mut := repositories.CredentialMutation{ClearCandidate: true}
	if !approve {
		mut.RejectionReason = event.Reason
	}
	updated, err := s.resets.ApplyTransition(ctx, req.ID, req.Status, req.Version, event, mut)
	if err != nil {
		return nil, s.translate(err, req.Status, target)
	}

	if approve {
		s.notify(req.RequesterID, "Password reset approved", "Your new password is now active.")
	} else {
		s.notify(req.RequesterID, "Password reset rejected",
			fmt.Sprintf("Your reset request was rejected: %s. Submit a new candidate to try again.", event.Reason))
	}
	return updated, nil
}

// Delete hides the requester's own pending or rejected request. Decided
// requests keep their history; an approved reset is never deletable.
func (s *CredentialService) Delete(ctx context.Context, actor models.Actor, id primitive.ObjectID) error {
	req, err := s.resets.FindByID(ctx, id)
	if err != nil {
		return s.translate(err, "", "")
	}
	if req.RequesterID != actor.ID {
		return ErrForbidden
	}
	if _, err := s.policy.DeleteModeFor(req.Status); err != nil {
		return err
	}
	return s.translate(s.resets.SoftDelete(ctx, req.ID), req.Status, "")
}

// PendingQueue is the treasurer's undecided reset requests, oldest first.
func (s *CredentialService) PendingQueue(ctx context.Context, actor models.Actor) ([]models.CredentialResetRequest, error) {
	if actor.Role != models.RoleTreasurer {
		return nil, ErrForbidden
	}
	return s.resets.ListPending(ctx)
}

func (s *CredentialService) notify(userID primitive.ObjectID, title, message string) {
	if s.notifier != nil {
		s.notifier.NotifyDecision(userID, title, message)
	}
}

func (s *CredentialService) translate(err error, from, to models.Status) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrStaleDocument):
		return &InvalidStateTransitionError{Kind: models.KindCredentialReset, From: from, To: to}
	}
	return err
}
