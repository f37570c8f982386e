package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/devinvoice/auth"
	"github.com/diewo77/devinvoice/i18n"
	"github.com/diewo77/devinvoice/internal/db"
	"github.com/diewo77/devinvoice/internal/mail"
	"github.com/diewo77/devinvoice/internal/sequence"
	"github.com/diewo77/devinvoice/internal/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// recordingSender keeps delivered messages. A non-nil err fails every send.
type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type testEnv struct {
	users     *services.UserService
	clients   *services.ClientService
	invoices  *services.InvoiceService
	sender    *recordingSender
	auth      *AuthHandler
	profile   *ProfileHandler
	client    *ClientHandler
	invoice   *InvoiceHandler
	dashboard *DashboardHandler
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return conn
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := setupTestDB(t)
	clock := func() time.Time { return testNow }
	alloc := sequence.NewAllocator(sequence.NewGormStore(conn), sequence.WithClock(clock))

	users := services.NewUserService(conn)
	clients := services.NewClientService(conn)
	invoices := services.NewInvoiceService(conn, alloc, services.WithInvoiceClock(clock))
	sender := &recordingSender{}

	authHandler := NewAuthHandler(users)
	authHandler.cost = 4 // bcrypt.MinCost keeps tests fast
	return &testEnv{
		users:     users,
		clients:   clients,
		invoices:  invoices,
		sender:    sender,
		auth:      authHandler,
		profile:   NewProfileHandler(users),
		client:    NewClientHandler(clients),
		invoice:   NewInvoiceHandler(invoices, users, sender),
		dashboard: NewDashboardHandler(invoices),
	}
}

func (e *testEnv) seedUser(t *testing.T, email string) string {
	t.Helper()
	u, err := e.users.Create(context.Background(), services.NewUser{Email: email, DisplayName: "Dana"})
	require.NoError(t, err)
	return u.UID
}

func (e *testEnv) seedClient(t *testing.T, owner, name string) string {
	t.Helper()
	c, err := e.clients.Create(context.Background(), owner, services.ClientInput{
		Name:  name,
		Email: "ap@" + name + ".test",
	})
	require.NoError(t, err)
	return c.ID
}

// call runs h with a JSON body, the user id in context and English messages.
// id, when set, becomes the {id} path value.
func call(t *testing.T, h http.HandlerFunc, method, target, uid, id string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	ctx := i18n.WithLang(req.Context(), "en")
	if uid != "" {
		ctx = auth.WithUserID(ctx, uid)
	}
	req = req.WithContext(ctx)
	if id != "" {
		req.SetPathValue("id", id)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return out
}

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

var errSMTPDown = errors.New("smtp: connection refused")

func sampleInvoice(clientID string) map[string]any {
	return map[string]any{
		"client_id": clientID,
		"date":      "2026-03-01",
		"due_date":  "2026-03-31",
		"tax_rate":  8,
		"line_items": []map[string]any{
			{"description": "Consulting", "quantity": "3", "rate": "33.33"},
			{"description": "Hosting", "quantity": 1, "rate": 20},
		},
	}
}
