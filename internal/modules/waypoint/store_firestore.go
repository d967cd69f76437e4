// README: Waypoint store backed by a Firestore collection.
package waypoint

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/genproto/googleapis/type/latlng"

	"trailquest/internal/types"
)

const DefaultCollection = "locations"

// FirestoreStore keeps one document per waypoint:
//
//	{owner: string, location: GeoPoint, timestamp: server timestamp}
//
// The waypoint id is the document key.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreStore{client: client, collection: collection}
}

func (s *FirestoreStore) Create(ctx context.Context, owner types.ID, p types.Point) (Waypoint, error) {
	ref, wr, err := s.client.Collection(s.collection).Add(ctx, map[string]interface{}{
		"owner":     string(owner),
		"location":  &latlng.LatLng{Latitude: p.Lat, Longitude: p.Lng},
		"timestamp": firestore.ServerTimestamp,
	})
	if err != nil {
		return Waypoint{}, err
	}
	// The commit time is the value the server stored for the timestamp.
	return Waypoint{
		ID:         types.ID(ref.ID),
		Owner:      owner,
		Point:      p,
		CapturedAt: wr.UpdateTime,
	}, nil
}

func (s *FirestoreStore) ListByOwner(ctx context.Context, owner types.ID) ([]Waypoint, error) {
	iter := s.client.Collection(s.collection).Where("owner", "==", string(owner)).Documents(ctx)
	defer iter.Stop()

	var result []Waypoint
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		w, ok := decodeFirestoreDocument(doc.Ref.ID, doc.Data())
		if !ok || w.Owner != owner {
			continue
		}
		result = append(result, w)
	}
	return result, nil
}

// Delete reads the document inside a transaction so the owner check and
// the removal see the same version.
func (s *FirestoreStore) Delete(ctx context.Context, owner, id types.ID) error {
	ref := s.client.Collection(s.collection).Doc(string(id))
	if ref == nil {
		return ErrInvalidID
	}
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if snap != nil && !snap.Exists() {
			return nil
		}
		if err != nil {
			return err
		}
		if got, _ := snap.Data()["owner"].(string); got != string(owner) {
			return nil
		}
		return tx.Delete(ref)
	})
}

// decodeFirestoreDocument accepts the location either as a GeoPoint or as
// a {latitude, longitude} map.
func decodeFirestoreDocument(id string, data map[string]interface{}) (Waypoint, bool) {
	owner, _ := data["owner"].(string)
	ts, ok := data["timestamp"].(time.Time)
	if !ok {
		return Waypoint{}, false
	}

	var p types.Point
	switch loc := data["location"].(type) {
	case *latlng.LatLng:
		if loc == nil {
			return Waypoint{}, false
		}
		p = types.Point{Lat: loc.GetLatitude(), Lng: loc.GetLongitude()}
	case map[string]interface{}:
		lat, okLat := asFloat(loc["latitude"])
		lng, okLng := asFloat(loc["longitude"])
		if !okLat || !okLng {
			return Waypoint{}, false
		}
		p = types.Point{Lat: lat, Lng: lng}
	default:
		return Waypoint{}, false
	}

	w := Waypoint{ID: types.ID(id), Owner: types.ID(owner), Point: p, CapturedAt: ts}
	return w, w.valid()
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}
