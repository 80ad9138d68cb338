package layout

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edalab/lamina/pkg/errors"
)

// MongoStore persists cells in a MongoDB collection, one document per cell
// keyed by cell name. Intended for shared team setups where layouts are
// edited from several machines.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to the given MongoDB URI and uses
// database/collection for cell documents.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, errors.ErrCodeStore, "ping mongodb")
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

// Load retrieves the cell with the given name.
func (s *MongoStore) Load(ctx context.Context, name string) (*Cell, error) {
	var doc cellDoc
	err := s.coll.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Newf(errors.ErrCodeCellNotFound, "cell %q not found", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "load cell document")
	}
	cell, err := decodeCell(doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidFormat, "rebuild cell")
	}
	return cell, nil
}

// Save upserts the cell document under its name.
func (s *MongoStore) Save(ctx context.Context, cell *Cell) error {
	doc := encodeCell(cell)
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"name": cell.Name},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "save cell document")
	}
	return nil
}

// List returns the names of all stored cells.
func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	cur, err := s.coll.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"name": 1}).SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "list cell documents")
	}
	defer cur.Close(ctx)

	var names []string
	for cur.Next(ctx) {
		var doc struct {
			Name string `bson:"name"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStore, "decode cell name")
		}
		names = append(names, doc.Name)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "iterate cell documents")
	}
	return names, nil
}

// Delete removes the stored cell, ignoring absent names.
func (s *MongoStore) Delete(ctx context.Context, name string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"name": name}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "delete cell document")
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
