package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"textmacro-go/domain/regionset"
)

// stateDocumentID is the _id of the document holding the active set name.
const stateDocumentID = "state"

// MongoDB holds the MongoDB client and the database in use.
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *slog.Logger
}

// MongoDBConfig contains configuration for the MongoDB connection.
type MongoDBConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
}

// DefaultMongoDBConfig returns default configuration.
func DefaultMongoDBConfig() *MongoDBConfig {
	return &MongoDBConfig{
		URI:            "mongodb://localhost:27017",
		Database:       "textmacro",
		Collection:     "region_sets",
		ConnectTimeout: 10 * time.Second,
		PingTimeout:    5 * time.Second,
	}
}

// NewMongoDB connects and pings the server.
func NewMongoDB(ctx context.Context, cfg *MongoDBConfig, logger *slog.Logger) (*MongoDB, error) {
	if cfg == nil {
		cfg = DefaultMongoDBConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", "uri", cfg.URI, "database", cfg.Database)

	return &MongoDB{
		client:   client,
		database: client.Database(cfg.Database),
		logger:   logger,
	}, nil
}

// Close disconnects from MongoDB.
func (m *MongoDB) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

// Collection returns a collection by name.
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// setDocument stores one region set, keyed by its name.
type setDocument struct {
	Name      string         `bson:"_id"`
	Regions   []regionRecord `bson:"regions"`
	CreatedAt time.Time      `bson:"created_at"`
}

// stateDocument stores the active set name.
type stateDocument struct {
	ID         string    `bson:"_id"`
	CurrentSet string    `bson:"current_set"`
	LastSaved  time.Time `bson:"last_saved"`
}

// MongoRegionSetRepository implements regionset.Repository using MongoDB.
// Each set is one document; the active set name lives in a companion
// "<collection>_state" collection.
type MongoRegionSetRepository struct {
	sets   *mongo.Collection
	state  *mongo.Collection
	logger *slog.Logger
}

// NewMongoRegionSetRepository creates a repository over the named collection.
func NewMongoRegionSetRepository(db *MongoDB, collection string, logger *slog.Logger) *MongoRegionSetRepository {
	if logger == nil {
		logger = slog.Default()
	}
	if collection == "" {
		collection = DefaultMongoDBConfig().Collection
	}
	return &MongoRegionSetRepository{
		sets:   db.Collection(collection),
		state:  db.Collection(collection + "_state"),
		logger: logger.With("component", "mongo_repository"),
	}
}

// Load reads every stored set. Returns nil if nothing has been stored.
func (r *MongoRegionSetRepository) Load(ctx context.Context) (*regionset.Snapshot, error) {
	cursor, err := r.sets.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to find region sets: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []setDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode region sets: %w", err)
	}

	var state stateDocument
	if err := r.state.FindOne(ctx, bson.M{"_id": stateDocumentID}).Decode(&state); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to find region set state: %w", err)
		}
		if len(docs) == 0 {
			return nil, nil
		}
	}

	return documentsToSnapshot(docs, &state)
}

// Save replaces the stored sets with snap. Sets absent from snap are deleted.
func (r *MongoRegionSetRepository) Save(ctx context.Context, snap *regionset.Snapshot) error {
	if snap == nil {
		return errors.New("snapshot is nil")
	}
	docs, err := snapshotToDocuments(snap)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		names = append(names, doc.Name)
		_, err := r.sets.ReplaceOne(ctx, bson.M{"_id": doc.Name}, doc, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("failed to save region set %s: %w", doc.Name, err)
		}
	}

	result, err := r.sets.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": names}})
	if err != nil {
		return fmt.Errorf("failed to prune region sets: %w", err)
	}

	state := stateDocument{ID: stateDocumentID, CurrentSet: snap.Current, LastSaved: snap.LastSaved}
	if _, err := r.state.ReplaceOne(ctx, bson.M{"_id": stateDocumentID}, state, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to save region set state: %w", err)
	}

	r.logger.Debug("Region sets saved", "sets", len(docs), "pruned", result.DeletedCount)
	return nil
}

func snapshotToDocuments(snap *regionset.Snapshot) ([]setDocument, error) {
	docs := make([]setDocument, 0, len(snap.Sets))
	for name, set := range snap.Sets {
		recs, err := regionsToRecords(set.Regions)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", name, err)
		}
		docs = append(docs, setDocument{Name: name, Regions: recs, CreatedAt: set.CreatedAt})
	}
	return docs, nil
}

func documentsToSnapshot(docs []setDocument, state *stateDocument) (*regionset.Snapshot, error) {
	snap := &regionset.Snapshot{
		Sets:      make(map[string]regionset.RegionSet, len(docs)),
		Current:   state.CurrentSet,
		LastSaved: state.LastSaved,
	}
	var errs []error
	for _, doc := range docs {
		regions, err := recordsToRegions(doc.Regions)
		if err != nil {
			errs = append(errs, fmt.Errorf("set %s: %w", doc.Name, err))
			continue
		}
		snap.Sets[doc.Name] = regionset.RegionSet{Name: doc.Name, Regions: regions, CreatedAt: doc.CreatedAt}
	}
	return snap, errors.Join(errs...)
}

// Ensure both repositories implement regionset.Repository
var (
	_ regionset.Repository = (*MongoRegionSetRepository)(nil)
	_ regionset.Repository = (*FileRegionSetRepository)(nil)
)
