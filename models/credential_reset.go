// models/credential_reset.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CredentialResetRequest asks the treasurer to approve a password change. Only
// a bcrypt hash of the candidate password is ever stored; on approval the hash
// is applied to the user record, on rejection it is discarded and the member
// must submit a wholly new candidate.
type CredentialResetRequest struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	RequesterID   primitive.ObjectID `json:"requesterId" bson:"requesterId"`
	CandidateHash string             `json:"-" bson:"candidateHash,omitempty"`

	Status  Status        `json:"status" bson:"status"`
	History []StatusEvent `json:"history" bson:"history"`
	Version int64         `json:"-" bson:"version"`

	RejectionReason string `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`

	DeletedAt *time.Time `json:"deletedAt,omitempty" bson:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}
