package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/devinvoice/internal/config"
	"github.com/diewo77/devinvoice/internal/policy"
	"github.com/diewo77/devinvoice/internal/sequence"
	"github.com/diewo77/devinvoice/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func run(t *testing.T, conn *gorm.DB, args ...string) (string, error) {
	t.Helper()
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "sqlite"}}
	root := NewRootCmd(cfg, func(*config.Config) (*gorm.DB, error) { return conn, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// seed migrates the schema and creates one invoice due on due.
func seed(t *testing.T, conn *gorm.DB, due time.Time) (owner string, invoiceID string) {
	t.Helper()
	_, err := run(t, conn, "migrate")
	require.NoError(t, err)

	ctx := context.Background()
	rc := policy.NewRouterConfig(conn, config.SequenceConfig{}, nil)
	user, err := rc.Users.Create(ctx, services.NewUser{Email: "ops@dev.test", DisplayName: "Ops"})
	require.NoError(t, err)
	client, err := rc.Clients.Create(ctx, user.UID, services.ClientInput{Name: "Acme", Email: "ap@acme.test"})
	require.NoError(t, err)
	inv, err := rc.Invoices.Create(ctx, user.UID, services.InvoiceInput{
		ClientID:  client.ID,
		Date:      due.AddDate(0, 0, -30),
		DueDate:   due,
		LineItems: []services.LineItemInput{{Description: "Support", Quantity: decimal.NewFromInt(2), Rate: decimal.RequireFromString("612.25")}},
	})
	require.NoError(t, err)
	return user.UID, inv.ID
}

func TestMigrate(t *testing.T) {
	conn := testDB(t)
	out, err := run(t, conn, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "migrations applied (auto)\n", out)
	assert.True(t, conn.Migrator().HasTable("number_sequence_buckets"))

	_, err = run(t, conn, "migrate", "--sql")
	assert.Error(t, err)
}

func TestSequenceShow(t *testing.T) {
	conn := testDB(t)
	owner, _ := seed(t, conn, time.Now().AddDate(0, 0, 30))
	year := fmt.Sprint(time.Now().UTC().Year())

	out, err := run(t, conn, "sequence", "show", "--owner", owner, "--year", year)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("INV-%s: last issued INV-%s-001, next INV-%s-002\n", year, year, year), out)

	out, err = run(t, conn, "sequence", "show", "--owner", owner, "--prefix", "DEV", "--year", year)
	require.NoError(t, err)
	assert.Contains(t, out, "no number issued")

	_, err = run(t, conn, "sequence", "show", "--owner", owner, "--prefix", "IN-V")
	assert.Error(t, err)

	_, err = run(t, conn, "sequence", "show")
	assert.Error(t, err, "owner is required")
}

func TestInvoicesStatusAndOverdue(t *testing.T) {
	conn := testDB(t)
	owner, id := seed(t, conn, time.Now().AddDate(0, 0, -3))

	out, err := run(t, conn, "invoices", "overdue", "--owner", owner)
	require.NoError(t, err)
	assert.Equal(t, "no overdue invoices\n", out)

	out, err = run(t, conn, "invoices", "status", "--owner", owner, "--id", id, "--to", "sent")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, ": sent\n"), out)

	out, err = run(t, conn, "invoices", "overdue", "--owner", owner)
	require.NoError(t, err)
	assert.Contains(t, out, "NUMBER")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "$1,224.50")

	_, err = run(t, conn, "invoices", "status", "--owner", owner, "--id", id, "--to", "draft")
	assert.Error(t, err)

	_, err = run(t, conn, "invoices", "status", "--owner", owner, "--id", id, "--to", "void")
	assert.Error(t, err)
}

func TestInvoicesShow(t *testing.T) {
	conn := testDB(t)
	owner, id := seed(t, conn, time.Now().AddDate(0, 0, -3))
	number := fmt.Sprintf("INV-%d-001", time.Now().UTC().Year())

	out, err := run(t, conn, "invoices", "show", "--owner", owner, "--number", number)
	require.NoError(t, err)
	assert.Contains(t, out, number)
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "$1,224.50")
	assert.NotContains(t, out, "overdue")

	_, err = run(t, conn, "invoices", "status", "--owner", owner, "--id", id, "--to", "sent")
	require.NoError(t, err)
	out, err = run(t, conn, "invoices", "show", "--owner", owner, "--number", number)
	require.NoError(t, err)
	assert.Contains(t, out, "sent (overdue)")

	_, err = run(t, conn, "invoices", "show", "--owner", owner, "--number", "INV-26-1")
	assert.ErrorIs(t, err, sequence.ErrInvalidNumber)

	_, err = run(t, conn, "invoices", "show", "--owner", "someone-else", "--number", number)
	assert.ErrorIs(t, err, services.ErrNotFound)
}
