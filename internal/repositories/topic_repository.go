package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TopicRepository defines the interface for topic membership storage
type TopicRepository interface {
	Join(ctx context.Context, topic string, userID models.UserID) error
	Leave(ctx context.Context, topic string, userID models.UserID) error
	Members(ctx context.Context, topic string, fn func(models.UserID) error) error
	RemoveUser(ctx context.Context, userID models.UserID) (int64, error)
}

// MongoTopicRepository implements TopicRepository for MongoDB
type MongoTopicRepository struct {
	collection *mongo.Collection
	batchSize  int32
}

// NewMongoTopicRepository creates a new MongoTopicRepository
func NewMongoTopicRepository(db *mongo.Database) *MongoTopicRepository {
	return &MongoTopicRepository{collection: db.Collection("topic_members"), batchSize: 500}
}

// EnsureIndexes creates the unique (topic, user_id) index and the per-user index.
func (r *MongoTopicRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "topic", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("topic_user_unique"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id"),
		},
	})
	return apperrors.Store("create topic indexes", err)
}

// Join adds userID to topic. Joining twice is a no-op.
func (r *MongoTopicRepository) Join(ctx context.Context, topic string, userID models.UserID) error {
	filter := bson.M{"topic": topic, "user_id": userID}
	update := bson.M{"$setOnInsert": bson.M{"created_at": time.Now().UTC()}}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// two concurrent upserts can both miss and one loses on the unique index
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return apperrors.Store("join topic", err)
	}
	return nil
}

func (r *MongoTopicRepository) Leave(ctx context.Context, topic string, userID models.UserID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"topic": topic, "user_id": userID})
	return apperrors.Store("leave topic", err)
}

// Members streams the members of topic to fn batch by batch. fn returning an error stops the scan.
func (r *MongoTopicRepository) Members(ctx context.Context, topic string, fn func(models.UserID) error) error {
	findOptions := options.Find().
		SetProjection(bson.M{"user_id": 1}).
		SetBatchSize(r.batchSize)
	cursor, err := r.collection.Find(ctx, bson.M{"topic": topic}, findOptions)
	if err != nil {
		return apperrors.Store("find topic members", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var member models.TopicMember
		if err := cursor.Decode(&member); err != nil {
			return apperrors.Store("decode topic member", err)
		}
		if err := fn(member.UserID); err != nil {
			return err
		}
	}
	return apperrors.Store("iterate topic members", cursor.Err())
}

func (r *MongoTopicRepository) RemoveUser(ctx context.Context, userID models.UserID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, apperrors.Store("remove topic memberships", err)
	}
	return res.DeletedCount, nil
}
