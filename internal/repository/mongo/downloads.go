package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mediagate/internal/domain"
)

// Connect establishes a MongoDB client connection. Extra options (monitors,
// timeouts) are appended after the URI so callers can layer instrumentation.
func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := make([]*options.ClientOptions, 0, len(extra)+1)
	opts = append(opts, options.Client().ApplyURI(uri))
	opts = append(opts, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	return client, nil
}

// Repository stores download records in a MongoDB collection.
type Repository struct {
	coll *mongo.Collection
}

// NewRepository wraps an existing client connection.
func NewRepository(client *mongo.Client, database, collection string) *Repository {
	return &Repository{coll: client.Database(database).Collection(collection)}
}

// EnsureIndexes creates the indexes the repository queries rely on.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		{Keys: bson.D{{Key: "content_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// Upsert inserts the record or replaces the stored state for the same id.
func (r *Repository) Upsert(ctx context.Context, rec domain.DownloadRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}
	doc := toDoc(rec)
	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}
	if _, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert download %s: %w", rec.ID, err)
	}
	return nil
}

// Get loads a single record by id.
func (r *Repository) Get(ctx context.Context, id string) (domain.DownloadRecord, error) {
	var doc downloadDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.DownloadRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.DownloadRecord{}, fmt.Errorf("find download %s: %w", id, err)
	}
	return fromDoc(doc), nil
}

// ListRecent returns up to limit records, most recently touched first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.DownloadRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []downloadDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode downloads: %w", err)
	}
	records := make([]domain.DownloadRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, fromDoc(doc))
	}
	return records, nil
}

// Delete removes a record by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete download %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// downloadDoc is the BSON shape of a download record. Timestamps are stored
// as Unix seconds, so sub-second precision is not preserved.
type downloadDoc struct {
	ID        string `bson:"_id"`
	ContentID string `bson:"content_id"`
	SourceURL string `bson:"source_url"`
	Title     string `bson:"title"`
	Kind      string `bson:"kind"`
	Quality   string `bson:"quality"`
	FileName  string `bson:"file_name"`
	SizeBytes int64  `bson:"size_bytes"`
	Status    string `bson:"status"`
	ErrorCode string `bson:"error_code,omitempty"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func toDoc(rec domain.DownloadRecord) downloadDoc {
	return downloadDoc{
		ID:        rec.ID,
		ContentID: rec.ContentID,
		SourceURL: rec.SourceURL,
		Title:     rec.Title,
		Kind:      string(rec.Kind),
		Quality:   string(rec.Quality),
		FileName:  rec.FileName,
		SizeBytes: rec.SizeBytes,
		Status:    string(rec.Status),
		ErrorCode: rec.ErrorCode,
		CreatedAt: rec.CreatedAt.Unix(),
		UpdatedAt: rec.UpdatedAt.Unix(),
	}
}

func fromDoc(doc downloadDoc) domain.DownloadRecord {
	return domain.DownloadRecord{
		ID:        doc.ID,
		ContentID: doc.ContentID,
		SourceURL: doc.SourceURL,
		Title:     doc.Title,
		Kind:      domain.MediaKind(doc.Kind),
		Quality:   domain.QualityTier(doc.Quality),
		FileName:  doc.FileName,
		SizeBytes: doc.SizeBytes,
		Status:    domain.DownloadStatus(doc.Status),
		ErrorCode: doc.ErrorCode,
		CreatedAt: time.Unix(doc.CreatedAt, 0),
		UpdatedAt: time.Unix(doc.UpdatedAt, 0),
	}
}
