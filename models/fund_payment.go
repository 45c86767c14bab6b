// models/fund_payment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FundPaymentRequest is a member's monthly dues payment for one period,
// reconciled manually by the treasurer against a bank statement line using the
// reference code embedded in the UPI transaction note.
type FundPaymentRequest struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	RequesterID   primitive.ObjectID `json:"requesterId" bson:"requesterId"`
	Period        string             `json:"period" bson:"period"` // e.g. "January 2026"
	Amount        float64            `json:"amount" bson:"amount"`
	ReferenceCode string             `json:"referenceCode" bson:"referenceCode"`

	// Payee snapshot taken at generation time so later settings changes never
	// change what the member already paid to.
	PayeeName string `json:"payeeName" bson:"payeeName"`
	PayeeUPI  string `json:"payeeUpi" bson:"payeeUpi"`

	Status  Status        `json:"status" bson:"status"`
	History []StatusEvent `json:"history" bson:"history"`
	Version int64         `json:"-" bson:"version"`

	MemberConfirmedAt *time.Time    `json:"memberConfirmedAt,omitempty" bson:"memberConfirmedAt,omitempty"`
	VerifiedAt        *time.Time    `json:"verifiedAt,omitempty" bson:"verifiedAt,omitempty"`
	Resubmission      *Resubmission `json:"resubmission,omitempty" bson:"resubmission,omitempty"`
	ResubmitCount     int           `json:"resubmitCount" bson:"resubmitCount"`

	DeletedAt *time.Time `json:"deletedAt,omitempty" bson:"deletedAt,omitempty"`
	Archived  bool       `json:"archived" bson:"archived"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Resubmission is the member's retry of a failed payment: a screenshot of the
// transfer plus an optional note. Set when the member resubmits and cleared on
// the treasurer's next verify-or-reject decision.
type Resubmission struct {
	PhotoRef    string    `json:"photoRef" bson:"photoRef"`
	Note        string    `json:"note,omitempty" bson:"note,omitempty"`
	SubmittedAt time.Time `json:"submittedAt" bson:"submittedAt"`
}

// QRPaymentData is what the member needs to complete a dues transfer.
type QRPaymentData struct {
	Request  *FundPaymentRequest `json:"request"`
	UPILink  string              `json:"upiLink"`
	QRBase64 string              `json:"qrCode"`
}
