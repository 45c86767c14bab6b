// services/reconciliation_service.go
package services

import (
	"context"
	"sort"
	"strings"

	"github.com/avishkar-club/treasury_backend/models"
)

// AmountGroup is one cluster of pending verifications sharing an amount.
// Flagged groups hold more than one request: when the treasurer sees a single
// statement line for that amount, any of them could be the match, so the
// reference note is the only safe discriminator.
type AmountGroup struct {
	Amount   float64                     `json:"amount"`
	Flagged  bool                        `json:"flagged"`
	Requests []models.FundPaymentRequest `json:"requests"`
}

// ReconciliationService is the treasurer-facing read-only view over the
// payment verification queue.
type ReconciliationService struct {
	payments PaymentStore
}

func NewReconciliationService(payments PaymentStore) *ReconciliationService {
	return &ReconciliationService{payments: payments}
}

// PendingQueue groups awaiting-verification requests by amount, flagging
// near-duplicates. The treasurer view always carries the unmasked reference
// codes; masking is a requester-display policy, not a security control.
func (s *ReconciliationService) PendingQueue(ctx context.Context, actor models.Actor) ([]AmountGroup, error) {
	if actor.Role != models.RoleTreasurer {
		return nil, ErrForbidden
	}

	pending, err := s.payments.FindAwaitingVerification(ctx)
	if err != nil {
		return nil, err
	}

	byAmount := make(map[float64][]models.FundPaymentRequest)
	for _, req := range pending {
		byAmount[req.Amount] = append(byAmount[req.Amount], req)
	}

	groups := make([]AmountGroup, 0, len(byAmount))
	for amount, requests := range byAmount {
		groups = append(groups, AmountGroup{
			Amount:   amount,
			Flagged:  len(requests) > 1,
			Requests: requests,
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Amount < groups[j].Amount })
	return groups, nil
}

// MaskReference replaces the variable timestamp tail of a code with filler for
// requester-facing display after payment confirmation. Anything that does not
// parse as a reference is returned untouched.
func MaskReference(code string) string {
	if _, err := ParseReference(code); err != nil {
		return code
	}
	cut := strings.LastIndex(code, "-")
	return code[:cut+1] + strings.Repeat("X", len(code)-cut-1)
}
