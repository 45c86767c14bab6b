// models/request.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestKind identifies which treasury workflow a request belongs to.
type RequestKind string

const (
	KindFundPayment     RequestKind = "fundPayment"
	KindReimbursement   RequestKind = "reimbursement"
	KindCredentialReset RequestKind = "credentialReset"
)

// Status is the lifecycle state of a treasury request.
type Status string

const (
	StatusPending              Status = "pending"
	StatusAwaitingVerification Status = "awaitingVerification"
	StatusPaid                 Status = "paid"
	StatusFailed               Status = "failed"
	StatusApproved             Status = "approved"
	StatusRejected             Status = "rejected"
	StatusReceived             Status = "received"
)

// Roles recognized by the workflow engine.
const (
	RoleMember    = "member"
	RoleTreasurer = "treasurer"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   primitive.ObjectID `json:"id" bson:"id"`
	Role string             `json:"role" bson:"role"`
}

// StatusEvent is one entry of a request's audit history. Entries are immutable
// once appended; the request's observable status always equals the To field of
// the most recent entry.
type StatusEvent struct {
	From          Status    `json:"from,omitempty" bson:"from,omitempty"`
	To            Status    `json:"to" bson:"to"`
	Actor         Actor     `json:"actor" bson:"actor"`
	At            time.Time `json:"at" bson:"at"`
	Reason        string    `json:"reason,omitempty" bson:"reason,omitempty"`
	AttachmentRef string    `json:"attachmentRef,omitempty" bson:"attachmentRef,omitempty"`
}

// Response model
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
