package attendance

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MethodFace marks documents produced by face check-in.
const MethodFace = "face"

// DayEntry is a single check-in/out record for one calendar date.
type DayEntry struct {
	Date      string `bson:"date" json:"date"`           // "2026-01-16"
	EntryTime string `bson:"entryTime" json:"entryTime"` // "10:05 AM"
	ExitTime  string `bson:"exitTime,omitempty" json:"exitTime,omitempty"`
}

// MonthRecord is a named bucket of day entries, e.g. "January 2026".
type MonthRecord struct {
	MonthName string     `bson:"monthName" json:"monthName"`
	Records   []DayEntry `bson:"records" json:"records"`
}

// Document is the per-user attendance collection.
type Document struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserEmail string             `bson:"userEmail" json:"userEmail"`
	Verified  bool               `bson:"verified" json:"verified"`
	Months    []MonthRecord      `bson:"months" json:"months"`
	Method    string             `bson:"method" json:"method"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TotalAttendance sums record counts across all months. Duplicate dates and
// overlapping month buckets are counted as stored.
func TotalAttendance(doc Document) int {
	total := 0
	for _, m := range doc.Months {
		total += len(m.Records)
	}
	return total
}

// Month returns the bucket with the given name, or nil.
func (d *Document) Month(name string) *MonthRecord {
	for i := range d.Months {
		if d.Months[i].MonthName == name {
			return &d.Months[i]
		}
	}
	return nil
}
