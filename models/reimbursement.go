// models/reimbursement.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReimbursementRequest is a member's claim for an expense paid out of pocket,
// tied to one specific bill. A rejected claim is terminal; a new bill means a
// new claim.
type ReimbursementRequest struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	RequesterID   primitive.ObjectID `json:"requesterId" bson:"requesterId"`
	Description   string             `json:"description" bson:"description"`
	Amount        float64            `json:"amount" bson:"amount"`
	ContactNumber string             `json:"contactNumber" bson:"contactNumber"`
	BillProofRef  string             `json:"billProofRef" bson:"billProofRef"`

	Status  Status        `json:"status" bson:"status"`
	History []StatusEvent `json:"history" bson:"history"`
	Version int64         `json:"-" bson:"version"`

	TreasurerResponse   *TreasurerResponse `json:"treasurerResponse,omitempty" bson:"treasurerResponse,omitempty"`
	ReceivedConfirmedAt *time.Time         `json:"receivedConfirmedAt,omitempty" bson:"receivedConfirmedAt,omitempty"`

	DeletedAt *time.Time `json:"deletedAt,omitempty" bson:"deletedAt,omitempty"`
	Archived  bool       `json:"archived" bson:"archived"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// TreasurerResponse records how the treasurer settled an approved claim: a
// message to the member plus proof of the transfer.
type TreasurerResponse struct {
	Message     string             `json:"message" bson:"message"`
	ProofRef    string             `json:"proofRef" bson:"proofRef"`
	RespondedBy primitive.ObjectID `json:"respondedBy" bson:"respondedBy"`
	RespondedAt time.Time          `json:"respondedAt" bson:"respondedAt"`
}
