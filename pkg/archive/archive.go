// Package archive persists generated reports to MongoDB so metric runs
// can be compared over time.
//
// Every stored report becomes a run with a generated UUID. Runs are
// immutable; re-running a report stores a new run rather than replacing
// the old one.
package archive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	apperrors "github.com/trackstats/trackstats/pkg/errors"
	"github.com/trackstats/trackstats/pkg/report"
)

// collection is the MongoDB collection holding archived runs.
const collection = "runs"

// connectTimeout bounds the initial server handshake.
const connectTimeout = 10 * time.Second

// Run is one archived report generation.
type Run struct {
	ID          string          `bson:"_id" json:"id"`
	Source      string          `bson:"source" json:"source"`
	Title       string          `bson:"title" json:"title"`
	Granularity string          `bson:"granularity" json:"granularity"`
	Generated   time.Time       `bson:"generated" json:"generated"`
	Document    report.Document `bson:"document" json:"document"`
}

// Summary is the listing view of a run, without the document body.
type Summary struct {
	ID          string    `bson:"_id" json:"id"`
	Source      string    `bson:"source" json:"source"`
	Title       string    `bson:"title" json:"title"`
	Granularity string    `bson:"granularity" json:"granularity"`
	Generated   time.Time `bson:"generated" json:"generated"`
}

// Store archives report runs in a MongoDB database.
type Store struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// NewStore connects to MongoDB at uri and verifies the connection with
// a ping before returning.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "connect to archive")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "ping archive")
	}

	return &Store{
		client: client,
		runs:   client.Database(database).Collection(collection),
	}, nil
}

// Put archives a document and returns the stored run, including its
// generated id.
func (s *Store) Put(ctx context.Context, doc *report.Document, granularity string) (*Run, error) {
	if err := doc.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "archive document")
	}

	run := Run{
		ID:          uuid.NewString(),
		Source:      doc.Source,
		Title:       doc.Title,
		Granularity: granularity,
		Generated:   doc.Generated,
		Document:    *doc,
	}
	if run.Generated.IsZero() {
		run.Generated = time.Now().UTC()
	}

	if _, err := s.runs.InsertOne(ctx, run); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "insert run")
	}
	return &run, nil
}

// Get fetches one archived run by id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&run)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.New(apperrors.ErrCodeRunNotFound, "run %q not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "fetch run")
	}
	return &run, nil
}

// List returns run summaries, newest first. An empty source lists runs
// from every source. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, source string, limit int) ([]Summary, error) {
	filter := bson.M{}
	if source != "" {
		filter["source"] = source
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "generated", Value: -1}}).
		SetProjection(bson.M{"document": 0})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.runs.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "list runs")
	}
	defer cursor.Close(ctx)

	var runs []Summary
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "decode runs")
	}
	return runs, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
