// repositories/credential_reset_repository.go
package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avishkar-club/treasury_backend/models"
)

// CredentialMutation carries field changes written atomically with a
// credential-reset status transition. ClearCandidate drops the stored hash on
// either decision so a decided request never retains a usable candidate.
type CredentialMutation struct {
	RejectionReason string
	ClearCandidate  bool
}

type CredentialResetRepository struct {
	collection *mongo.Collection
}

func NewCredentialResetRepository(db *mongo.Database) *CredentialResetRepository {
	return &CredentialResetRepository{collection: db.Collection("credential_resets")}
}

func (r *CredentialResetRepository) Insert(ctx context.Context, req *models.CredentialResetRequest) error {
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, req)
	return translateWriteErr(err)
}

func (r *CredentialResetRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.CredentialResetRequest, error) {
	var req models.CredentialResetRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "deletedAt": nil}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindPendingByRequester backs the duplicate-submit idempotency: a second
// submit while one is pending returns the existing request.
func (r *CredentialResetRepository) FindPendingByRequester(ctx context.Context, requesterID primitive.ObjectID) (*models.CredentialResetRequest, error) {
	var req models.CredentialResetRequest
	err := r.collection.FindOne(ctx, bson.M{
		"requesterId": requesterID,
		"status":      models.StatusPending,
		"deletedAt":   nil,
	}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *CredentialResetRepository) ListPending(ctx context.Context) ([]models.CredentialResetRequest, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"status": models.StatusPending, "deletedAt": nil},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []models.CredentialResetRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *CredentialResetRepository) ApplyTransition(ctx context.Context, id primitive.ObjectID, from models.Status, version int64, event models.StatusEvent, mut CredentialMutation) (*models.CredentialResetRequest, error) {
	set := bson.M{
		"status":    event.To,
		"updatedAt": event.At,
	}
	if mut.RejectionReason != "" {
		set["rejectionReason"] = mut.RejectionReason
	}

	update := bson.M{
		"$set":  set,
		"$inc":  bson.M{"version": 1},
		"$push": bson.M{"history": event},
	}
	if mut.ClearCandidate {
		update["$unset"] = bson.M{"candidateHash": ""}
	}

	var updated models.CredentialResetRequest
	err := r.collection.FindOneAndUpdate(ctx, bson.M{
		"_id":       id,
		"status":    from,
		"version":   version,
		"deletedAt": nil,
	}, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, r.disambiguate(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *CredentialResetRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "deletedAt": nil}, bson.M{
		"$set": bson.M{"deletedAt": now, "updatedAt": now},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CredentialResetRepository) disambiguate(ctx context.Context, id primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id, "deletedAt": nil})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStaleDocument
}
