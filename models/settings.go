// models/settings.go
package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// TreasurySettings holds the read-only configuration the workflows consult:
// per-join-year dues amounts and the treasurer's UPI handle. Maintained out of
// band by the treasurer; the workflow engine never writes it.
type TreasurySettings struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	TierAmounts map[string]float64 `json:"tierAmounts" bson:"tierAmounts"` // join year -> monthly dues
	UPIID       string             `json:"upiId" bson:"upiId"`
	PayeeName   string             `json:"payeeName" bson:"payeeName"`

	// Days a Pending fund payment may sit before the external scheduler is
	// expected to fail it. Exposed for that collaborator; never enforced here.
	PendingExpiryDays int `json:"pendingExpiryDays" bson:"pendingExpiryDays"`
}
