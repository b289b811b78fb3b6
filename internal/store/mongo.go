package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps each collection in a MongoDB collection. Documents are
// stored with their ID as _id. Documents written by other clients may be keyed
// by ObjectID; their ID is its hex form.
type MongoStore struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

// OpenMongo connects to MongoDB and verifies the primary is reachable.
// Multi-document transactions need a replica set; without them Atomically
// falls back to compensating writes.
func OpenMongo(ctx context.Context, uri, database string, transactions bool) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, unavailable("connecting to mongodb", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, unavailable("pinging mongodb", err)
	}

	return &MongoStore{
		client:       client,
		db:           client.Database(database),
		transactions: transactions,
	}, nil
}

// Close disconnects the client.
func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoStore) collection(c Collection) (*mongo.Collection, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	return m.db.Collection(string(c)), nil
}

// Insert implements Store.
func (m *MongoStore) Insert(ctx context.Context, c Collection, doc Document) (string, error) {
	coll, err := m.collection(c)
	if err != nil {
		return "", err
	}
	if doc.ID == "" {
		doc.ID = NewID()
	}

	var body bson.M
	if err := bson.UnmarshalExtJSON(doc.Data, false, &body); err != nil {
		return "", fmt.Errorf("converting document: %w", err)
	}
	body["_id"] = doc.ID

	if _, err := coll.InsertOne(ctx, body); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("inserting %s/%s: %w", c, doc.ID, ErrDuplicateID)
		}
		return "", unavailable("inserting document", err)
	}
	return doc.ID, nil
}

// Find implements Store.
func (m *MongoStore) Find(ctx context.Context, c Collection, f Filter, limit int) ([]Document, error) {
	coll, err := m.collection(c)
	if err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	filter, err := mongoFilter(f)
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable("finding documents", err)
	}
	defer cur.Close(ctx)

	docs := []Document{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, unavailable("decoding document", err)
		}
		d, err := fromBSON(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("finding documents", err)
	}
	return docs, nil
}

// FindOne implements Store.
func (m *MongoStore) FindOne(ctx context.Context, c Collection, id string) (*Document, error) {
	coll, err := m.collection(c)
	if err != nil {
		return nil, err
	}

	var raw bson.M
	err = coll.FindOne(ctx, idFilter(id)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("getting document", err)
	}

	d, err := fromBSON(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateOne implements Store.
func (m *MongoStore) UpdateOne(ctx context.Context, c Collection, id string, p Patch, cond Filter) (bool, error) {
	coll, err := m.collection(c)
	if err != nil {
		return false, err
	}
	if err := cond.validate(); err != nil {
		return false, err
	}
	set, inc, unset, err := p.normalize()
	if err != nil {
		return false, err
	}

	filter := idFilter(id)
	if len(cond) > 0 {
		extra, err := mongoFilter(cond)
		if err != nil {
			return false, err
		}
		filter = bson.M{"$and": bson.A{filter, extra}}
	}

	update := bson.M{}
	if len(set) > 0 {
		fields := bson.M{}
		for _, s := range set {
			v, err := jsonToBSON(s.value)
			if err != nil {
				return false, err
			}
			fields[s.name] = v
		}
		update["$set"] = fields
	}
	if len(inc) > 0 {
		fields := bson.M{}
		for _, i := range inc {
			fields[i.name] = i.delta
		}
		update["$inc"] = fields
	}
	if len(unset) > 0 {
		fields := bson.M{}
		for _, name := range unset {
			fields[name] = ""
		}
		update["$unset"] = fields
	}

	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, unavailable("updating document", err)
	}
	return res.MatchedCount > 0, nil
}

// DeleteOne implements Store.
func (m *MongoStore) DeleteOne(ctx context.Context, c Collection, id string) (bool, error) {
	coll, err := m.collection(c)
	if err != nil {
		return false, err
	}

	res, err := coll.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return false, unavailable("deleting document", err)
	}
	return res.DeletedCount > 0, nil
}

// Atomically runs fn in a multi-document transaction when enabled, and with
// compensating writes otherwise.
func (m *MongoStore) Atomically(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if !m.transactions {
		return runCompensated(ctx, m, fn)
	}

	sess, err := m.client.StartSession()
	if err != nil {
		return unavailable("starting session", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, m)
	})
	return err
}

// Ping implements Store.
func (m *MongoStore) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return unavailable("pinging mongodb", err)
	}
	return nil
}

// idFilter matches id as a string key, or as the ObjectID it spells.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

// mongoFilter translates f into a query document. Conditions are combined
// with $and so several may constrain the same field.
func mongoFilter(f Filter) (bson.M, error) {
	if len(f) == 0 {
		return bson.M{}, nil
	}
	all := bson.A{}
	for _, c := range f {
		d, err := mongoCondition(c)
		if err != nil {
			return nil, err
		}
		all = append(all, d)
	}
	return bson.M{"$and": all}, nil
}

func mongoCondition(c Condition) (bson.M, error) {
	switch c := c.(type) {
	case Eq:
		v, err := filterValue(c.Value)
		if err != nil {
			return nil, err
		}
		return bson.M{c.Field: v}, nil
	case Gt:
		v, err := filterValue(c.Value)
		if err != nil {
			return nil, err
		}
		return bson.M{c.Field: bson.M{"$gt": v}}, nil
	case Gte:
		v, err := filterValue(c.Value)
		if err != nil {
			return nil, err
		}
		return bson.M{c.Field: bson.M{"$gte": v}}, nil
	case Contains:
		return bson.M{c.Field: caseInsensitive(c.Substr)}, nil
	case ElemContains:
		// A regex against an array field matches any element.
		return bson.M{c.Field: caseInsensitive(c.Substr)}, nil
	case Or:
		alts := bson.A{}
		for _, sub := range c {
			d, err := mongoCondition(sub)
			if err != nil {
				return nil, err
			}
			alts = append(alts, d)
		}
		return bson.M{"$or": alts}, nil
	default:
		return nil, fmt.Errorf("unsupported condition %T", c)
	}
}

func caseInsensitive(substr string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(substr), "$options": "i"}
}

// filterValue converts an operand the same way stored documents are
// converted, so comparisons see identical BSON types.
func filterValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding filter value: %w", err)
	}
	return jsonToBSON(raw)
}

func jsonToBSON(raw json.RawMessage) (any, error) {
	var wrapper bson.M
	if err := bson.UnmarshalExtJSON([]byte(`{"v":`+string(raw)+`}`), false, &wrapper); err != nil {
		return nil, fmt.Errorf("converting value: %w", err)
	}
	return wrapper["v"], nil
}

func fromBSON(raw bson.M) (Document, error) {
	var id string
	switch v := raw["_id"].(type) {
	case string:
		id = v
	case primitive.ObjectID:
		id = v.Hex()
	default:
		return Document{}, fmt.Errorf("unsupported _id type %T", v)
	}
	delete(raw, "_id")

	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return Document{}, fmt.Errorf("converting document %s: %w", id, err)
	}
	return Document{ID: id, Data: data}, nil
}
