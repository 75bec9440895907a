package attendance

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for dev runs and tests. It applies the
// same append and exit-time rules as Repository.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*Document
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*Document)}
}

// Put replaces the document for doc.UserEmail.
func (s *MemoryStore) Put(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneDocument(doc)
	cp.UserEmail = normalizeEmail(cp.UserEmail)
	s.docs[cp.UserEmail] = &cp
}

func (s *MemoryStore) Get(_ context.Context, email string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[normalizeEmail(email)]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(*doc), nil
}

func (s *MemoryStore) List(_ context.Context, page, limit int) ([]Document, int64, error) {
	page, limit = clampPage(page, limit)
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		all = append(all, cloneDocument(*d))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].UserEmail < all[j].UserEmail
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start := (page - 1) * limit
	if start >= len(all) {
		return []Document{}, int64(len(all)), nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (s *MemoryStore) AppendEntry(_ context.Context, email, monthName string, entry DayEntry, now time.Time) (bool, error) {
	email = normalizeEmail(email)
	now = now.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[email]
	if !ok {
		doc = &Document{
			UserEmail: email,
			Verified:  true,
			Method:    MethodFace,
			Months:    []MonthRecord{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.docs[email] = doc
	}
	month := doc.Month(monthName)
	if month == nil {
		doc.Months = append(doc.Months, MonthRecord{MonthName: monthName, Records: []DayEntry{}})
		month = &doc.Months[len(doc.Months)-1]
	}
	for _, r := range month.Records {
		if r.Date == entry.Date {
			return false, nil
		}
	}
	month.Records = append(month.Records, entry)
	doc.UpdatedAt = now
	return true, nil
}

func (s *MemoryStore) SetExitTime(_ context.Context, email, monthName, date, exitTime string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[normalizeEmail(email)]
	if !ok {
		return ErrNoEntryToday
	}
	found := false
	for mi := range doc.Months {
		if doc.Months[mi].MonthName != monthName {
			continue
		}
		for ri := range doc.Months[mi].Records {
			if doc.Months[mi].Records[ri].Date == date {
				doc.Months[mi].Records[ri].ExitTime = exitTime
				found = true
			}
		}
	}
	if !found {
		return ErrNoEntryToday
	}
	doc.UpdatedAt = now.UTC()
	return nil
}

func cloneDocument(d Document) Document {
	out := d
	out.Months = make([]MonthRecord, len(d.Months))
	for i, m := range d.Months {
		out.Months[i] = MonthRecord{MonthName: m.MonthName, Records: append([]DayEntry(nil), m.Records...)}
	}
	return out
}
