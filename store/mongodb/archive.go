// Package mongodb archives generated reports in MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/warp/textile-ops/allocation"
)

const collReports = "allocation_reports"

// Archive implements allocation.ReportArchive for MongoDB.
type Archive struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewArchive connects to uri and verifies the connection.
func NewArchive(ctx context.Context, uri string, dbName string) (*Archive, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Archive{
		client:   client,
		dbName:   dbName,
		collName: collReports,
	}, nil
}

// reportDocument is the stored shape. The payload is kept as raw JSON text
// so the archive never has to know the report schema.
type reportDocument struct {
	ID          string    `bson:"_id"`
	GeneratedAt time.Time `bson:"generated_at"`
	PeriodStart string    `bson:"period_start,omitempty"`
	PeriodEnd   string    `bson:"period_end,omitempty"`
	Trigger     string    `bson:"trigger"`
	Payload     string    `bson:"payload"`
}

func toDocument(r allocation.ArchivedReport) reportDocument {
	return reportDocument{
		ID:          r.ID,
		GeneratedAt: r.GeneratedAt.UTC(),
		PeriodStart: r.Period.Start,
		PeriodEnd:   r.Period.End,
		Trigger:     r.Trigger,
		Payload:     string(r.Payload),
	}
}

func (d reportDocument) report() allocation.ArchivedReport {
	return allocation.ArchivedReport{
		ID:          d.ID,
		GeneratedAt: d.GeneratedAt,
		Period:      allocation.Period{Start: d.PeriodStart, End: d.PeriodEnd},
		Trigger:     d.Trigger,
		Payload:     []byte(d.Payload),
	}
}

func (a *Archive) collection() *mongo.Collection {
	return a.client.Database(a.dbName).Collection(a.collName)
}

// SaveReport inserts a report. A duplicate ID returns allocation.ErrDuplicateID.
func (a *Archive) SaveReport(ctx context.Context, r allocation.ArchivedReport) error {
	_, err := a.collection().InsertOne(ctx, toDocument(r))
	if mongo.IsDuplicateKeyError(err) {
		return allocation.ErrDuplicateID
	}
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// ListReports returns the newest reports first.
func (a *Archive) ListReports(ctx context.Context, limit int) ([]allocation.ArchivedReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "generated_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := a.collection().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []reportDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}

	reports := make([]allocation.ArchivedReport, 0, len(docs))
	for _, d := range docs {
		reports = append(reports, d.report())
	}
	return reports, nil
}

// Close closes the MongoDB connection.
func (a *Archive) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}

var _ allocation.ReportArchive = (*Archive)(nil)
