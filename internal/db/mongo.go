package db

import (
	"context"
	"fmt"

	"github.com/RichardoC/healthpad/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	MongoDatabase   = "Health_Assistant"
	MongoCollection = "Health_Memory"
)

// Mongo keeps conversation turns as documents in the Health_Memory
// collection, one document per turn.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongo(ctx context.Context, uri string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	m := NewMongoFromCollection(client.Database(MongoDatabase).Collection(MongoCollection))
	m.client = client

	_, err = m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return m, nil
}

func NewMongoFromCollection(coll *mongo.Collection) *Mongo {
	return &Mongo{coll: coll}
}

func (m *Mongo) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(context.Background())
}

func (m *Mongo) AppendTurns(ctx context.Context, turns ...models.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		t.CreatedAt = t.CreatedAt.UTC()
		docs = append(docs, t)
	}
	// ordered inserts keep the user turn ahead of the assistant turn
	if _, err := m.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to insert turns: %w", err)
	}
	return nil
}

func (m *Mongo) RecentTurns(ctx context.Context, userID string, limit int) ([]models.Turn, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 0})

	cur, err := m.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return []models.Turn{}, fmt.Errorf("failed to find turns: %w", err)
	}
	defer cur.Close(ctx)

	turns := make([]models.Turn, 0)
	if err := cur.All(ctx, &turns); err != nil {
		return []models.Turn{}, fmt.Errorf("failed to decode turns: %w", err)
	}
	return turns, nil
}
