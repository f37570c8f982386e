package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/devinvoice/internal/models"
	"github.com/diewo77/devinvoice/internal/sequence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db       *gorm.DB
	clock    *fakeClock
	users    *UserService
	clients  *ClientService
	invoices *InvoiceService
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&models.User{}, &models.Client{}, &models.Invoice{}, &models.LineItem{}, &models.NumberSequenceBucket{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	clock := &fakeClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	alloc := sequence.NewAllocator(sequence.NewGormStore(db),
		sequence.WithClock(clock.Now),
		sequence.WithBackoff(time.Microsecond, 100*time.Microsecond))

	users := NewUserService(db)
	users.now = clock.Now
	clients := NewClientService(db)
	clients.now = clock.Now
	return &testEnv{
		db:       db,
		clock:    clock,
		users:    users,
		clients:  clients,
		invoices: NewInvoiceService(db, alloc, WithInvoiceClock(clock.Now)),
	}
}

func (e *testEnv) seedUser(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), NewUser{Email: email, DisplayName: "Owner " + email})
	require.NoError(t, err)
	return u
}

func (e *testEnv) seedClient(t *testing.T, owner, name string) *models.Client {
	t.Helper()
	c, err := e.clients.Create(context.Background(), owner, ClientInput{
		Name:    name,
		Email:   "billing@" + name + ".test",
		Address: "1 Main St\nSpringfield",
	})
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	return c
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func sampleInput(clientID string) InvoiceInput {
	return InvoiceInput{
		ClientID: clientID,
		Date:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		DueDate:  time.Date(2024, 4, 14, 0, 0, 0, 0, time.UTC),
		LineItems: []LineItemInput{
			{Description: "Design", Quantity: dec("2"), Rate: dec("50.00")},
			{Description: "Hosting", Quantity: dec("1"), Rate: dec("19.99")},
		},
		TaxRate: decPtr("8"),
	}
}
