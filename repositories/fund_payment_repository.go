// repositories/fund_payment_repository.go
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

// OpenPaymentStatuses are the statuses that count as "open" for the
// one-open-request-per-period rule; the partial unique index on fund_payments
// is built from the same set. Failed is excluded: a failed payment is retried
// in place, not reopened.
var OpenPaymentStatuses = []models.Status{models.StatusPending, models.StatusAwaitingVerification}

// PaymentMutation carries the field changes applied alongside a status
// transition. The transition, these fields and the audit entry are written in
// one UpdateOne so they commit together or not at all.
type PaymentMutation struct {
	MemberConfirmedAt *time.Time
	VerifiedAt        *time.Time
	Resubmission      *models.Resubmission
	ClearResubmission bool
	IncResubmitCount  bool
}

type FundPaymentRepository struct {
	collection *mongo.Collection
}

func NewFundPaymentRepository(db *mongo.Database) *FundPaymentRepository {
	return &FundPaymentRepository{collection: db.Collection("fund_payments")}
}

func (r *FundPaymentRepository) Insert(ctx context.Context, req *models.FundPaymentRequest) error {
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, req)
	return translateWriteErr(err)
}

func (r *FundPaymentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.FundPaymentRequest, error) {
	var req models.FundPaymentRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "deletedAt": nil}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindForPeriod returns the member's non-deleted request for a period,
// regardless of status, or ErrNotFound.
func (r *FundPaymentRepository) FindForPeriod(ctx context.Context, requesterID primitive.ObjectID, period string) (*models.FundPaymentRequest, error) {
	var req models.FundPaymentRequest
	err := r.collection.FindOne(ctx, bson.M{
		"requesterId": requesterID,
		"period":      period,
		"deletedAt":   nil,
	}, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindAwaitingVerification is the treasurer's pending queue, oldest first.
func (r *FundPaymentRepository) FindAwaitingVerification(ctx context.Context) ([]models.FundPaymentRequest, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"status":    models.StatusAwaitingVerification,
		"deletedAt": nil,
	}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []models.FundPaymentRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *FundPaymentRepository) ListByRequester(ctx context.Context, requesterID primitive.ObjectID, includeArchived bool) ([]models.FundPaymentRequest, error) {
	filter := bson.M{"requesterId": requesterID, "deletedAt": nil}
	if !includeArchived {
		filter["archived"] = false
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []models.FundPaymentRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *FundPaymentRepository) ReferenceExists(ctx context.Context, code string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"referenceCode": code})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ApplyTransition performs the atomic state change: the filter pins the status
// and version the caller read, the update writes the new status, the mutated
// fields and exactly one history entry. MatchedCount 0 with an existing
// document means the caller lost a concurrent race (ErrStaleDocument).
func (r *FundPaymentRepository) ApplyTransition(ctx context.Context, id primitive.ObjectID, from models.Status, version int64, event models.StatusEvent, mut PaymentMutation) (*models.FundPaymentRequest, error) {
	set := bson.M{
		"status":    event.To,
		"updatedAt": event.At,
	}
	if mut.MemberConfirmedAt != nil {
		set["memberConfirmedAt"] = mut.MemberConfirmedAt
	}
	if mut.VerifiedAt != nil {
		set["verifiedAt"] = mut.VerifiedAt
	}
	if mut.Resubmission != nil {
		set["resubmission"] = mut.Resubmission
	}

	inc := bson.M{"version": 1}
	if mut.IncResubmitCount {
		inc["resubmitCount"] = 1
	}

	update := bson.M{
		"$set":  set,
		"$inc":  inc,
		"$push": bson.M{"history": event},
	}
	if mut.ClearResubmission {
		update["$unset"] = bson.M{"resubmission": ""}
	}

	var updated models.FundPaymentRequest
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

func (r *FundPaymentRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
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

// Archive hides a completed request from the requester's list. The document
// and its history are retained.
func (r *FundPaymentRepository) Archive(ctx context.Context, id primitive.ObjectID) error {
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

func (r *FundPaymentRepository) disambiguate(ctx context.Context, id primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id, "deletedAt": nil})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStaleDocument
}
