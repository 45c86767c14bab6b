// services/payment_service.go
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

// PaymentStore is the persistence the payment workflow needs.
type PaymentStore interface {
	Insert(ctx context.Context, req *models.FundPaymentRequest) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.FundPaymentRequest, error)
	FindForPeriod(ctx context.Context, requesterID primitive.ObjectID, period string) (*models.FundPaymentRequest, error)
	FindAwaitingVerification(ctx context.Context) ([]models.FundPaymentRequest, error)
	ListByRequester(ctx context.Context, requesterID primitive.ObjectID, includeArchived bool) ([]models.FundPaymentRequest, error)
	ApplyTransition(ctx context.Context, id primitive.ObjectID, from models.Status, version int64, event models.StatusEvent, mut repositories.PaymentMutation) (*models.FundPaymentRequest, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	Archive(ctx context.Context, id primitive.ObjectID) error
}

// UserStore resolves requesters for tier lookups and credential application.
type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
}

// SettingsStore supplies the read-only treasury configuration.
type SettingsStore interface {
	Get(ctx context.Context) (*models.TreasurySettings, error)
}

// Notifier delivers best-effort decision notifications. Implementations must
// never fail the calling operation.
type Notifier interface {
	NotifyDecision(userID primitive.ObjectID, title, message string)
}

// PaymentService runs the monthly dues workflow:
//
//	Pending -> AwaitingVerification -> Paid | Failed
//	Failed  -> AwaitingVerification   (one resubmission, with photo proof)
//
// Verification is a treasurer attestation against the reference code and the
// member's tier amount, not automatic bank matching.
type PaymentService struct {
	payments PaymentStore
	users    UserStore
	settings SettingsStore
	refs     *ReferenceCodeGenerator
	policy   *KindPolicy
	notifier Notifier
}

func NewPaymentService(payments PaymentStore, users UserStore, settings SettingsStore, refs *ReferenceCodeGenerator, notifier Notifier) *PaymentService {
	return &PaymentService{
		payments: payments,
		users:    users,
		settings: settings,
		refs:     refs,
		policy:   PaymentPolicy(),
		notifier: notifier,
	}
}

// GenerateQR starts (or resumes) the dues payment for a period. Calling it
// again for a period that already has an open request returns that request
// with a fresh QR, never a duplicate. A Failed request is also returned as-is:
// the member pays against the same reference and then resubmits proof.
func (s *PaymentService) GenerateQR(ctx context.Context, actor models.Actor, period string) (*models.QRPaymentData, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return nil, validationErrf("period is required")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load treasury settings: %w", err)
	}
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	amount, ok := settings.TierAmounts[user.JoinYear]
	if !ok || amount <= 0 {
		return nil, validationErrf("no dues amount configured for join year %s", user.JoinYear)
	}

	existing, err := s.payments.FindForPeriod(ctx, actor.ID, period)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.StatusPaid {
			return nil, validationErrf("dues for %s are already paid", period)
		}
		return s.qrData(existing)
	}

	for attempt := 0; attempt < maxRefRetries; attempt++ {
		code, err := s.refs.Generate(ctx, models.KindFundPayment, actor.ID)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		req := &models.FundPaymentRequest{
			RequesterID:   actor.ID,
			Period:        period,
			Amount:        amount,
			ReferenceCode: code,
			PayeeName:     settings.PayeeName,
			PayeeUPI:      settings.UPIID,
			Status:        models.StatusPending,
			History:       []models.StatusEvent{s.policy.SubmitEvent(actor)},
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		err = s.payments.Insert(ctx, req)
		if err == nil {
			return s.qrData(req)
		}
		if !errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, err
		}
		// Lost a concurrent generate for the same period; hand back the winner.
		if winner, ferr := s.payments.FindForPeriod(ctx, actor.ID, period); ferr == nil {
			return s.qrData(winner)
		}
		// No period winner, so the collision was on the reference index.
		// Generate a fresh code and try again.
	}
	return nil, ErrReferenceExhausted
}

// ConfirmPayment is the member's attestation that the transfer was made.
// Confirming an already-confirmed request is a no-op success so client retries
// after flaky responses never fail.
func (s *PaymentService) ConfirmPayment(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.FundPaymentRequest, error) {
	req, err := s.findOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Status == models.StatusAwaitingVerification {
		return req, nil
	}

	event, err := s.policy.Transition(TransitionInput{
		OwnerID: req.RequesterID,
		Current: req.Status,
		Target:  models.StatusAwaitingVerification,
		Actor:   actor,
	})
	if err != nil {
		return nil, err
	}

	confirmedAt := event.At
	updated, err := s.payments.ApplyTransition(ctx, req.ID, req.Status, req.Version, event, repositories.PaymentMutation{
		MemberConfirmedAt: &confirmedAt,
	})
	return updated, s.translate(err, req.Status, models.StatusAwaitingVerification)
}

// Verify marks the dues as received. The checks are deliberately narrow: the
// stored reference still parses back to this requester (tamper defense), the
// amount still matches the member's tier, and the request is awaiting
// verification. Matching the bank statement itself is the treasurer's manual
// judgement.
func (s *PaymentService) Verify(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.FundPaymentRequest, error) {
	req, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "", "")
	}

	event, err := s.policy.Transition(TransitionInput{
		OwnerID: req.RequesterID,
		Current: req.Status,
		Target:  models.StatusPaid,
		Actor:   actor,
	})
	if err != nil {
		return nil, err
	}

	parts, err := ParseReference(req.ReferenceCode)
	if err != nil {
		return nil, err
	}
	if parts.Kind != models.KindFundPayment || parts.OwnerShort != OwnerShort(req.RequesterID) {
		return nil, validationErrf("reference code does not belong to this request's owner")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load treasury settings: %w", err)
	}
	user, err := s.users.FindByID(ctx, req.RequesterID)
	if err != nil {
		return nil, err
	}
	if tier, ok := settings.TierAmounts[user.JoinYear]; !ok || req.Amount != tier {
		return nil, validationErrf("amount %.2f does not match the %s tier", req.Amount, user.JoinYear)
	}

	verifiedAt := event.At
	updated, err := s.payments.ApplyTransition(ctx, req.ID, req.Status, req.Version, event, repositories.PaymentMutation{
		VerifiedAt:        &verifiedAt,
		ClearResubmission: true,
	})
	if err != nil {
		return nil, s.translate(err, req.Status, models.StatusPaid)
	}
	s.notify(req.RequesterID, "Dues payment verified",
		fmt.Sprintf("Your payment for %s has been verified. Reference: %s", req.Period, req.ReferenceCode))
	return updated, nil
}

// RejectVerification fails the payment with a mandatory reason. After a
// resubmission has already been used, Failed is absorbing.
func (s *PaymentService) RejectVerification(ctx context.Context, actor models.Actor, id primitive.ObjectID, reason string) (*models.FundPaymentRequest, error) {
	req, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "", "")
	}

	event, err := s.policy.Transition(TransitionInput{
		OwnerID: req.RequesterID,
		Current: req.Status,
		Target:  models.StatusFailed,
		Actor:   actor,
		Reason:  reason,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.payments.ApplyTransition(ctx, req.ID, req.Status, req.Version, event, repositories.PaymentMutation{
		ClearResubmission: true,
	})
	if err != nil {
		return nil, s.translate(err, req.Status, models.StatusFailed)
	}
	s.notify(req.RequesterID, "Dues payment could not be verified",
		fmt.Sprintf("Your payment for %s was not verified: %s", req.Period, event.Reason))
	return updated, nil
}

// Resubmit retries a failed payment for the same period obligation with a
// transfer screenshot and optional note. Unlike the primary QR path this edge
// always carries an attachment. One retry only.
func (s *PaymentService) Resubmit(ctx context.Context, actor models.Actor, id primitive.ObjectID, photoRef, note string) (*models.FundPaymentRequest, error) {
	if strings.TrimSpace(photoRef) == "" {
		return nil, validationErrf("a payment screenshot is required to resubmit")
	}

	req, err := s.findOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.ResubmitCount > 0 {
		return nil, &InvalidStateTransitionError{Kind: models.KindFundPayment, From: req.Status, To: models.StatusAwaitingVerification}
	}

	event, err := s.policy.Transition(TransitionInput{
		OwnerID:       req.RequesterID,
		Current:       req.Status,
		Target:        models.StatusAwaitingVerification,
		Actor:         actor,
		Reason:        strings.TrimSpace(note),
		AttachmentRef: photoRef,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.payments.ApplyTransition(ctx, req.ID, req.Status, req.Version, event, repositories.PaymentMutation{
		Resubmission: &models.Resubmission{
			PhotoRef:    photoRef,
			Note:        strings.TrimSpace(note),
			SubmittedAt: event.At,
		},
		IncResubmitCount: true,
	})
	return updated, s.translate(err, req.Status, models.StatusAwaitingVerification)
}

// Delete is requester-initiated: destructive (soft) while the request is still
// open or failed, archival once paid. History is never erased.
func (s *PaymentService) Delete(ctx context.Context, actor models.Actor, id primitive.ObjectID) error {
	req, err := s.findOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	mode, err := s.policy.DeleteModeFor(req.Status)
	if err != nil {
		return err
	}
	if mode == DeleteArchive {
		return s.translate(s.payments.Archive(ctx, req.ID), req.Status, "")
	}
	return s.translate(s.payments.SoftDelete(ctx, req.ID), req.Status, "")
}

// History lists the member's own requests. Confirmed references are masked:
// the variable tail is not meaningful to the member after payment and hiding
// it keeps one member's note contents from leaking to another over a shoulder.
func (s *PaymentService) History(ctx context.Context, actor models.Actor, includeArchived bool) ([]models.FundPaymentRequest, error) {
	requests, err := s.payments.ListByRequester(ctx, actor.ID, includeArchived)
	if err != nil {
		return nil, err
	}
	for i := range requests {
		if requests[i].MemberConfirmedAt != nil {
			requests[i].ReferenceCode = MaskReference(requests[i].ReferenceCode)
		}
	}
	return requests, nil
}

func (s *PaymentService) qrData(req *models.FundPaymentRequest) (*models.QRPaymentData, error) {
	link := BuildUPILink(req.PayeeUPI, req.PayeeName, req.Amount, req.ReferenceCode)
	qrb64, err := QRCodePNGBase64(link)
	if err != nil {
		return nil, fmt.Errorf("encode payment QR: %w", err)
	}
	return &models.QRPaymentData{Request: req, UPILink: link, QRBase64: qrb64}, nil
}

func (s *PaymentService) findOwned(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.FundPaymentRequest, error) {
	req, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "", "")
	}
	if req.RequesterID != actor.ID {
		return nil, ErrForbidden
	}
	return req, nil
}

func (s *PaymentService) notify(userID primitive.ObjectID, title, message string) {
	if s.notifier != nil {
		s.notifier.NotifyDecision(userID, title, message)
	}
}

func (s *PaymentService) translate(err error, from, to models.Status) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrStaleDocument):
		return &InvalidStateTransitionError{Kind: models.KindFundPayment, From: from, To: to}
	}
	return err
}
