package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BatchFixture represents test product batch data
type BatchFixture struct {
	ID            string
	BarcodeNo     string
	ProductName   string
	ProductDetail string
	Quantity      int
	ExpiryDate    time.Time
	IsArchived    bool
}

// DistributionFixture represents test distribution record data
type DistributionFixture struct {
	ID       string
	BatchID  string
	Quantity int
	IsActive bool
}

// UserFixture represents test user data
type UserFixture struct {
	ID           string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Birthdate    time.Time
	Contact      string
	Role         string
	Status       string
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Batch creates a batch fixture with defaults
func (f *FixtureFactory) Batch(opts ...func(*BatchFixture)) BatchFixture {
	seq := f.nextSeq()

	batch := BatchFixture{
		ID:            fmt.Sprintf("BATCH-%04d", seq),
		BarcodeNo:     fmt.Sprintf("4800%08d", seq),
		ProductName:   "Paracetamol 500mg",
		ProductDetail: "Test batch",
		Quantity:      500,
		ExpiryDate:    time.Now().AddDate(1, 0, 0).Truncate(24 * time.Hour),
		IsArchived:    false,
	}

	for _, opt := range opts {
		opt(&batch)
	}

	return batch
}

// WithProduct sets the batch's product name
func WithProduct(name string) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.ProductName = name
	}
}

// WithQuantity sets the batch quantity
func WithQuantity(qty int) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.Quantity = qty
	}
}

// WithExpiry sets the batch expiry date
func WithExpiry(expiry time.Time) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.ExpiryDate = expiry
	}
}

// WithExpiryIn sets the expiry to today plus the given number of days
func WithExpiryIn(days int) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.ExpiryDate = time.Now().AddDate(0, 0, days).Truncate(24 * time.Hour)
	}
}

// Archived marks the batch as archived
func Archived() func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.IsArchived = true
		b.Quantity = 0
	}
}

// Distribution creates a distribution fixture anchored to the given batch
func (f *FixtureFactory) Distribution(batchID string, opts ...func(*DistributionFixture)) DistributionFixture {
	dist := DistributionFixture{
		ID:       uuid.New().String(),
		BatchID:  batchID,
		Quantity: 10,
		IsActive: true,
	}

	for _, opt := range opts {
		opt(&dist)
	}

	return dist
}

// WithDistQuantity sets the distribution quantity
func WithDistQuantity(qty int) func(*DistributionFixture) {
	return func(d *DistributionFixture) {
		d.Quantity = qty
	}
}

// Retired marks the distribution as retired
func Retired() func(*DistributionFixture) {
	return func(d *DistributionFixture) {
		d.IsActive = false
	}
}

// User creates a user fixture with defaults
func (f *FixtureFactory) User(opts ...func(*UserFixture)) UserFixture {
	seq := f.nextSeq()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)

	user := UserFixture{
		ID:           uuid.New().String(),
		Username:     fmt.Sprintf("user%d", seq),
		PasswordHash: string(hash),
		FirstName:    fmt.Sprintf("Test%d", seq),
		LastName:     "User",
		Birthdate:    time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Contact:      fmt.Sprintf("user%d@wsms.test", seq),
		Role:         "Supervisor",
		Status:       "Active",
	}

	for _, opt := range opts {
		opt(&user)
	}

	return user
}

// WithUsername sets the username
func WithUsername(username string) func(*UserFixture) {
	return func(u *UserFixture) {
		u.Username = username
	}
}

// WithPassword sets the user password (hashed)
func WithPassword(password string) func(*UserFixture) {
	return func(u *UserFixture) {
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		u.PasswordHash = string(hash)
	}
}

// WithRole sets the user role
func WithRole(role string) func(*UserFixture) {
	return func(u *UserFixture) {
		u.Role = role
	}
}

// WithStatus sets the user status
func WithStatus(status string) func(*UserFixture) {
	return func(u *UserFixture) {
		u.Status = status
	}
}
