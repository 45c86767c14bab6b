// services/lifecycle.go
//
// Generic approval lifecycle shared by all three treasury workflows. Each kind
// supplies a KindPolicy (its transition graph plus the per-edge actor and
// reason rules); the policy turns an attempted operation into a StatusEvent or
// a typed failure. Persistence of the new state together with the event is the
// repository's job, so a request is never observed mid-transition.
package services

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/avishkar-club/treasury_backend/models"
)

// Edge is one permitted move in a kind's transition graph.
type Edge struct {
	From models.Status
	To   models.Status
}

// EdgeRule scopes who may take an edge and what it must carry.
type EdgeRule struct {
	RequireOwner  bool   // actor must be the owning requester
	RequireRole   string // actor must hold this role (e.g. treasurer)
	RequireReason bool   // a non-blank reason is mandatory
}

// DeleteMode says what a requester-initiated delete does from a given state.
type DeleteMode int

const (
	DeleteSoft    DeleteMode = iota // document hidden, history retained
	DeleteArchive                   // completed request, archive only
)

// KindPolicy parameterizes the lifecycle engine for one request kind.
type KindPolicy struct {
	Kind           models.RequestKind
	Edges          map[Edge]EdgeRule
	DeletableFrom  []models.Status
	ArchivableFrom []models.Status
}

// TransitionInput is one attempted state change.
type TransitionInput struct {
	OwnerID       primitive.ObjectID
	Current       models.Status
	Target        models.Status
	Actor         models.Actor
	Reason        string
	AttachmentRef string
}

// Transition validates the attempt against the graph and the edge's rules and
// returns the StatusEvent to append. Any failure leaves nothing to persist.
func (p *KindPolicy) Transition(in TransitionInput) (models.StatusEvent, error) {
	rule, ok := p.Edges[Edge{From: in.Current, To: in.Target}]
	if !ok {
		return models.StatusEvent{}, &InvalidStateTransitionError{Kind: p.Kind, From: in.Current, To: in.Target}
	}
	if rule.RequireOwner && in.Actor.ID != in.OwnerID {
		return models.StatusEvent{}, ErrForbidden
	}
	if rule.RequireRole != "" && in.Actor.Role != rule.RequireRole {
		return models.StatusEvent{}, ErrForbidden
	}
	if rule.RequireReason && strings.TrimSpace(in.Reason) == "" {
		return models.StatusEvent{}, validationErrf("a reason is required when moving to %s", in.Target)
	}
	return models.StatusEvent{
		From:          in.Current,
		To:            in.Target,
		Actor:         in.Actor,
		At:            time.Now().UTC(),
		Reason:        strings.TrimSpace(in.Reason),
		AttachmentRef: in.AttachmentRef,
	}, nil
}

// SubmitEvent is the initial history entry written when a request is created.
// It has no source state; the contiguity invariant starts at its target.
func (p *KindPolicy) SubmitEvent(actor models.Actor) models.StatusEvent {
	return models.StatusEvent{
		To:    models.StatusPending,
		Actor: actor,
		At:    time.Now().UTC(),
	}
}

// DeleteModeFor decides whether a requester delete from the given state is a
// soft delete, an archive, or not permitted at all.
func (p *KindPolicy) DeleteModeFor(current models.Status) (DeleteMode, error) {
	for _, s := range p.DeletableFrom {
		if s == current {
			return DeleteSoft, nil
		}
	}
	for _, s := range p.ArchivableFrom {
		if s == current {
			return DeleteArchive, nil
		}
	}
	return 0, &InvalidStateTransitionError{Kind: p.Kind, From: current, To: "deleted"}
}

// PaymentPolicy is the dues-payment graph. Failed -> AwaitingVerification is
// the resubmission edge; whether it is still available (one retry only) is the
// payment service's check, since it depends on the request's resubmit count.
func PaymentPolicy() *KindPolicy {
	return &KindPolicy{
		Kind: models.KindFundPayment,
		Edges: map[Edge]EdgeRule{
			{models.StatusPending, models.StatusAwaitingVerification}: {RequireOwner: true},
			{models.StatusAwaitingVerification, models.StatusPaid}:    {RequireRole: models.RoleTreasurer},
			{models.StatusAwaitingVerification, models.StatusFailed}:  {RequireRole: models.RoleTreasurer, RequireReason: true},
			{models.StatusFailed, models.StatusAwaitingVerification}:  {RequireOwner: true},
		},
		DeletableFrom:  []models.Status{models.StatusPending, models.StatusFailed},
		ArchivableFrom: []models.Status{models.StatusPaid},
	}
}

// ReimbursementPolicy: a rejected claim is terminal because it is tied to one
// specific bill; a new claim needs a new submission.
func ReimbursementPolicy() *KindPolicy {
	return &KindPolicy{
		Kind: models.KindReimbursement,
		Edges: map[Edge]EdgeRule{
			{models.StatusPending, models.StatusApproved}: {RequireRole: models.RoleTreasurer},
			{models.StatusPending, models.StatusRejected}: {RequireRole: models.RoleTreasurer, RequireReason: true},
			{models.StatusApproved, models.StatusPaid}:    {RequireRole: models.RoleTreasurer},
			{models.StatusPaid, models.StatusReceived}:    {RequireOwner: true},
		},
		DeletableFrom:  []models.Status{models.StatusPending, models.StatusRejected},
		ArchivableFrom: []models.Status{models.StatusPaid, models.StatusReceived},
	}
}

// CredentialResetPolicy: both decisions are terminal; a rejected candidate is
// discarded and can never be resubmitted.
func CredentialResetPolicy() *KindPolicy {
	return &KindPolicy{
		Kind: models.KindCredentialReset,
		Edges: map[Edge]EdgeRule{
			{models.StatusPending, models.StatusApproved}: {RequireRole: models.RoleTreasurer},
			{models.StatusPending, models.StatusRejected}: {RequireRole: models.RoleTreasurer, RequireReason: true},
		},
		DeletableFrom: []models.Status{models.StatusPending, models.StatusRejected},
	}
}
