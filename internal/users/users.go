// Package users reads the users collection: identity, role and the stored
// reference image used for face verification.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// Role values stored on users.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("user is inactive")
	ErrNoReferenceImage   = errors.New("user has no profile picture")
)

// User is the subset of the users collection this service needs.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name,omitempty" json:"name,omitempty"`
	Email          string             `bson:"email" json:"email"`
	PasswordHash   string             `bson:"password,omitempty" json:"-"`
	ProfilePicture string             `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	Role           string             `bson:"role" json:"role"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	CreatedAt      time.Time          `bson:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt,omitempty" json:"updatedAt"`
}

// IsAdmin treats superadmins as admins.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// CheckPassword compares password with the stored bcrypt hash.
func (u User) CheckPassword(password string) error {
	if u.PasswordHash == "" || password == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for the password field.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Store is implemented by Repository and MemoryStore.
type Store interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	SetProfilePicture(ctx context.Context, email, url string) error
}

// Normalize lowercases and trims an email the way the collection stores it.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// emailCollation matches emails case-insensitively, as the attendance
// repository does.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

// Repository reads users from Mongo.
type Repository struct {
	coll *mongo.Collection
}

// NewRepository uses the "users" collection of db.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{coll: db.Collection("users")}
}

// GetByEmail returns the user, including the password hash.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.coll.FindOne(ctx, bson.M{"email": Normalize(email)},
		options.FindOne().SetCollation(emailCollation)).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// SetProfilePicture stores the reference image URL.
func (r *Repository) SetProfilePicture(ctx context.Context, email, url string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": Normalize(email)},
		bson.M{"$set": bson.M{"profilePicture": url, "updatedAt": time.Now().UTC()}},
		options.Update().SetCollation(emailCollation),
	)
	if err != nil {
		return fmt.Errorf("update profile picture: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert inserts or replaces a user by email. Used by attendctl to seed
// accounts.
func (r *Repository) Upsert(ctx context.Context, u User) error {
	u.Email = Normalize(u.Email)
	now := time.Now().UTC()
	u.UpdatedAt = now
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.ID = primitive.NilObjectID
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"email": u.Email},
		bson.M{"$set": u},
		options.Update().SetCollation(emailCollation).SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryStore seeds the store with users.
func NewMemoryStore(seed ...User) *MemoryStore {
	m := &MemoryStore{users: make(map[string]User)}
	for _, u := range seed {
		m.Put(u)
	}
	return m
}

// Put adds or replaces a user.
func (m *MemoryStore) Put(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = Normalize(u.Email)
	m.users[u.Email] = u
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[Normalize(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) SetProfilePicture(_ context.Context, email, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Normalize(email)
	u, ok := m.users[key]
	if !ok {
		return ErrNotFound
	}
	u.ProfilePicture = url
	u.UpdatedAt = time.Now().UTC()
	m.users[key] = u
	return nil
}
