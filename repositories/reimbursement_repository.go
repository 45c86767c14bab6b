// repositories/reimbursement_repository.go
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

// ReimbursementMutation carries field changes written atomically with a
// reimbursement status transition.
type ReimbursementMutation struct {
	TreasurerResponse   *models.TreasurerResponse
	ReceivedConfirmedAt *time.Time
}

type ReimbursementRepository struct {
	collection *mongo.Collection
}

func NewReimbursementRepository(db *mongo.Database) *ReimbursementRepository {
	return &ReimbursementRepository{collection: db.Collection("reimbursements")}
}

func (r *ReimbursementRepository) Insert(ctx context.Context, req *models.ReimbursementRequest) error {
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, req)
	return translateWriteErr(err)
}

func (r *ReimbursementRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ReimbursementRequest, error) {
	var req models.ReimbursementRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "deletedAt": nil}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *ReimbursementRepository) ListByRequester(ctx context.Context, requesterID primitive.ObjectID, includeArchived bool) ([]models.ReimbursementRequest, error) {
	filter := bson.M{"requesterId": requesterID, "deletedAt": nil}
	if !includeArchived {
		filter["archived"] = false
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []models.ReimbursementRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *ReimbursementRepository) ListByStatus(ctx context.Context, status models.Status) ([]models.ReimbursementRequest, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"status": status, "deletedAt": nil},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []models.ReimbursementRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *ReimbursementRepository) ApplyTransition(ctx context.Context, id primitive.ObjectID, from models.Status, version int64, event models.StatusEvent, mut ReimbursementMutation) (*models.ReimbursementRequest, error) {
	set := bson.M{
		"status":    event.To,
		"updatedAt": event.At,
	}
	if mut.TreasurerResponse != nil {
		set["treasurerResponse"] = mut.TreasurerResponse
	}
	if mut.ReceivedConfirmedAt != nil {
		set["receivedConfirmedAt"] = mut.ReceivedConfirmedAt
	}

	var updated models.ReimbursementRequest
	err := r.collection.FindOneAndUpdate(ctx, bson.M{
		"_id":       id,
		"status":    from,
		"version":   version,
		"deletedAt": nil,
	}, bson.M{
		"$set":  set,
		"$inc":  bson.M{"version": 1},
		"$push": bson.M{"history": event},
	}, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, r.disambiguate(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *ReimbursementRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
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

func (r *ReimbursementRepository) Archive(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "deletedAt": nil}, bson.M{
		"$set": bson.M{"archived": true, "updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReimbursementRepository) disambiguate(ctx context.Context, id primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id, "deletedAt": nil})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStaleDocument
}
