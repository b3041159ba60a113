package docstore

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollectionName = "documents"

type MongoConfig struct {
	URI      string
	Database string
	// Transactions wraps each batch in a multi-document transaction.
	// Requires a replica set; standalone servers must disable it.
	Transactions   bool
	ConnectTimeout time.Duration
}

// mongoDocument is the stored shape: one collection holds every logical path.
type mongoDocument struct {
	Key        string `bson:"_id"`
	Collection string `bson:"collection"`
	DocID      string `bson:"docId"`
	Data       bson.M `bson:"data"`
}

type MongoStore struct {
	client       *mongo.Client
	coll         *mongo.Collection
	transactions bool
}

func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, crerr.Wrap(err, "connect mongo")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, crerr.Wrap(err, "ping mongo")
	}

	coll := client.Database(cfg.Database).Collection(mongoCollectionName)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "collection", Value: 1}, {Key: "docId", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, crerr.Wrap(err, "ensure mongo index")
	}

	return &MongoStore{client: client, coll: coll, transactions: cfg.Transactions}, nil
}

func (s *MongoStore) GetAll(ctx context.Context, collection string) ([]Document, error) {
	return s.find(ctx, bson.M{"collection": collection})
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var stored mongoDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": mongoKey(collection, id)}).Decode(&stored)
	if err != nil {
		if crerr.Is(err, mongo.ErrNoDocuments) {
			return Document{}, crerr.Wrapf(ErrNotFound, "%s/%s", collection, id)
		}
		return Document{}, crerr.Wrapf(err, "get document %s/%s", collection, id)
	}
	return stored.toDocument(), nil
}

func (s *MongoStore) Query(ctx context.Context, collection, field string, value any) ([]Document, error) {
	return s.find(ctx, bson.M{"collection": collection, "data." + field: value})
}

func (s *MongoStore) Commit(ctx context.Context, ops []Op) error {
	models, updates := mongoWriteModels(ops)
	if len(models) == 0 {
		return nil
	}

	write := func(ctx context.Context) error {
		res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
		if err != nil {
			return crerr.Wrap(err, "bulk write")
		}
		if res.MatchedCount+res.UpsertedCount < int64(updates) {
			return crerr.Wrapf(ErrNotFound, "matched %d of %d updated documents", res.MatchedCount, updates)
		}
		return nil
	}

	if !s.transactions {
		return write(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return crerr.Wrap(err, "start mongo session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, write(sc)
	})
	if err != nil {
		return crerr.Wrap(err, "commit batch")
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]Document, error) {
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "docId", Value: 1}}))
	if err != nil {
		return nil, crerr.Wrap(err, "find documents")
	}
	defer cursor.Close(ctx)

	var stored []mongoDocument
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, crerr.Wrap(err, "decode documents")
	}

	out := make([]Document, 0, len(stored))
	for _, item := range stored {
		out = append(out, item.toDocument())
	}
	return out, nil
}

// mongoWriteModels returns the bulk models and how many of them are updates
// that must match an existing document.
func mongoWriteModels(ops []Op) ([]mongo.WriteModel, int) {
	models := make([]mongo.WriteModel, 0, len(ops))
	updates := 0
	for _, op := range ops {
		key := mongoKey(op.Collection, op.ID)
		switch op.Kind {
		case OpUpdate:
			set := bson.M{}
			for field, value := range op.Fields {
				set["data."+field] = value
			}
			if len(set) == 0 {
				continue
			}
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"_id": key}).
				SetUpdate(bson.M{"$set": set}))
			updates++
		case OpSet:
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": key}).
				SetReplacement(mongoDocument{
					Key:        key,
					Collection: op.Collection,
					DocID:      op.ID,
					Data:       bson.M(op.Fields),
				}).
				SetUpsert(true))
		}
	}
	return models, updates
}

func mongoKey(collection, id string) string {
	return collection + "/" + id
}

func (d mongoDocument) toDocument() Document {
	data, _ := plainValue(d.Data).(map[string]any)
	if data == nil {
		data = map[string]any{}
	}
	return Document{ID: d.DocID, Data: data}
}

// plainValue converts BSON container and number types into the shapes a JSON
// decoder produces, so repositories see identical data across backends.
func plainValue(value any) any {
	switch typed := value.(type) {
	case bson.M:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = plainValue(v)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = plainValue(v)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(typed))
		for _, elem := range typed {
			out[elem.Key] = plainValue(elem.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = plainValue(v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = plainValue(v)
		}
		return out
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case int:
		return float64(typed)
	case primitive.DateTime:
		return typed.Time().UTC().Format(time.RFC3339)
	default:
		return typed
	}
}
