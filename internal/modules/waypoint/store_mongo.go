// README: Waypoint store backed by a MongoDB collection.
package waypoint

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"trailquest/internal/types"
)

type mongoLocation struct {
	Latitude  *float64 `bson:"latitude"`
	Longitude *float64 `bson:"longitude"`
}

type mongoDocument struct {
	ID        string         `bson:"_id"`
	Owner     string         `bson:"owner"`
	Location  *mongoLocation `bson:"location"`
	Timestamp *time.Time     `bson:"timestamp"`
}

func (d mongoDocument) toWaypoint() (Waypoint, bool) {
	if d.Location == nil || d.Location.Latitude == nil || d.Location.Longitude == nil || d.Timestamp == nil {
		return Waypoint{}, false
	}
	w := Waypoint{
		ID:         types.ID(d.ID),
		Owner:      types.ID(d.Owner),
		Point:      types.Point{Lat: *d.Location.Latitude, Lng: *d.Location.Longitude},
		CapturedAt: *d.Timestamp,
	}
	return w, w.valid()
}

// MongoStore timestamps documents with this process's clock, in UTC and
// truncated to the millisecond precision BSON dates keep.
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &MongoStore{coll: db.Collection(collection), now: time.Now}
}

// EnsureIndexes creates the index backing the owner filter.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}},
	})
	return err
}

func (s *MongoStore) Create(ctx context.Context, owner types.ID, p types.Point) (Waypoint, error) {
	id := uuid.NewString()
	capturedAt := s.now().UTC().Truncate(time.Millisecond)
	_, err := s.coll.InsertOne(ctx, bson.M{
		"_id":   id,
		"owner": string(owner),
		"location": bson.M{
			"latitude":  p.Lat,
			"longitude": p.Lng,
		},
		"timestamp": capturedAt,
	})
	if err != nil {
		return Waypoint{}, err
	}
	return Waypoint{ID: types.ID(id), Owner: owner, Point: p, CapturedAt: capturedAt}, nil
}

func (s *MongoStore) ListByOwner(ctx context.Context, owner types.ID) ([]Waypoint, error) {
	cur, err := s.coll.Find(ctx, bson.M{"owner": string(owner)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var result []Waypoint
	for cur.Next(ctx) {
		var doc mongoDocument
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		w, ok := doc.toWaypoint()
		if !ok || w.Owner != owner {
			continue
		}
		result = append(result, w)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *MongoStore) Delete(ctx context.Context, owner, id types.ID) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": string(id), "owner": string(owner)})
	return err
}
