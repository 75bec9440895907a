package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when a user has no attendance document.
	ErrNotFound = errors.New("attendance document not found")
	// ErrNoEntryToday is returned by check-out when no check-in exists for the date.
	ErrNoEntryToday = errors.New("no check-in recorded for this date")
)

// Store persists attendance documents.
type Store interface {
	Get(ctx context.Context, email string) (Document, error)
	List(ctx context.Context, page, limit int) ([]Document, int64, error)
	// AppendEntry adds entry to the named month, creating the document and
	// bucket as needed. It reports false when the date is already recorded.
	AppendEntry(ctx context.Context, email, monthName string, entry DayEntry, now time.Time) (bool, error)
	SetExitTime(ctx context.Context, email, monthName, date, exitTime string, now time.Time) error
}

// emailCollation matches userEmail case-insensitively, so documents written
// before emails were lower-cased are still found.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

// Repository stores attendance documents in MongoDB, one per user.
type Repository struct {
	c *mongo.Collection
}

// NewRepository creates a repo over the faceattendances collection, the
// name the existing documents were written under.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{c: db.Collection("faceattendances")}
}

// EnsureIndexes creates the case-insensitive unique user index and the
// listing index. It fails while two documents differ only in email case;
// those must be merged first.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userEmail", Value: 1}},
			Options: options.Index().
				SetName("idx_attendance_user_ci").
				SetUnique(true).
				SetCollation(emailCollation),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_attendance_created"),
		},
	})
	return err
}

// Get returns the document for email.
func (r *Repository) Get(ctx context.Context, email string) (Document, error) {
	var doc Document
	err := r.c.FindOne(ctx, bson.M{"userEmail": normalizeEmail(email)},
		options.FindOne().SetCollation(emailCollation)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("find attendance: %w", err)
	}
	return doc, nil
}

// List returns one page of documents, newest first, and the total count.
func (r *Repository) List(ctx context.Context, page, limit int) ([]Document, int64, error) {
	page, limit = clampPage(page, limit)

	total, err := r.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := r.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}
	defer cur.Close(ctx)

	docs := []Document{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode attendance: %w", err)
	}
	return docs, total, nil
}

// AppendEntry runs three conditional updates: upsert the document, add the
// month bucket if missing, push the entry if the date is not in the bucket.
func (r *Repository) AppendEntry(ctx context.Context, email, monthName string, entry DayEntry, now time.Time) (bool, error) {
	email = normalizeEmail(email)
	now = now.UTC()
	update := options.Update().SetCollation(emailCollation)

	_, err := r.c.UpdateOne(ctx,
		bson.M{"userEmail": email},
		bson.M{"$setOnInsert": bson.M{
			"userEmail": email,
			"verified":  true,
			"method":    MethodFace,
			"months":    bson.A{},
			"createdAt": now,
			"updatedAt": now,
		}},
		options.Update().SetCollation(emailCollation).SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("upsert attendance: %w", err)
	}

	_, err = r.c.UpdateOne(ctx,
		bson.M{"userEmail": email, "months.monthName": bson.M{"$ne": monthName}},
		bson.M{"$push": bson.M{"months": MonthRecord{MonthName: monthName, Records: []DayEntry{}}}},
		update,
	)
	if err != nil {
		return false, fmt.Errorf("add month bucket: %w", err)
	}

	res, err := r.c.UpdateOne(ctx,
		bson.M{
			"userEmail": email,
			"months": bson.M{"$elemMatch": bson.M{
				"monthName":    monthName,
				"records.date": bson.M{"$ne": entry.Date},
			}},
		},
		bson.M{
			"$push": bson.M{"months.$.records": entry},
			"$set":  bson.M{"updatedAt": now},
		},
		update,
	)
	if err != nil {
		return false, fmt.Errorf("push day entry: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// SetExitTime writes exitTime on the entry for date.
func (r *Repository) SetExitTime(ctx context.Context, email, monthName, date, exitTime string, now time.Time) error {
	opts := options.Update().SetCollation(emailCollation).SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"m.monthName": monthName},
			bson.M{"r.date": date},
		},
	})
	res, err := r.c.UpdateOne(ctx,
		bson.M{
			"userEmail": normalizeEmail(email),
			"months":    bson.M{"$elemMatch": bson.M{"monthName": monthName, "records.date": date}},
		},
		bson.M{"$set": bson.M{
			"months.$[m].records.$[r].exitTime": exitTime,
			"updatedAt":                         now.UTC(),
		}},
		opts,
	)
	if err != nil {
		return fmt.Errorf("set exit time: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNoEntryToday
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
