// repositories/settings_repository.go
package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/avishkar-club/treasury_backend/models"
)

// SettingsRepository reads the single treasury settings document. The workflow
// engine never writes it; the treasurer maintains it out of band.
type SettingsRepository struct {
	collection *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{collection: db.Collection("settings")}
}

func (r *SettingsRepository) Get(ctx context.Context) (*models.TreasurySettings, error) {
	var settings models.TreasurySettings
	err := r.collection.FindOne(ctx, bson.M{}).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}
