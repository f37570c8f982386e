// Package policy wires services and handlers into one router configuration.
package policy

import (
	"context"

	"github.com/diewo77/devinvoice/internal/config"
	"github.com/diewo77/devinvoice/internal/handlers"
	"github.com/diewo77/devinvoice/internal/mail"
	"github.com/diewo77/devinvoice/internal/sequence"
	"github.com/diewo77/devinvoice/internal/services"
	"gorm.io/gorm"
)

// RouterConfig holds configured handlers and the services behind them.
type RouterConfig struct {
	// Handlers
	AuthHandler      *handlers.AuthHandler
	ProfileHandler   *handlers.ProfileHandler
	ClientHandler    *handlers.ClientHandler
	InvoiceHandler   *handlers.InvoiceHandler
	DashboardHandler *handlers.DashboardHandler

	// Services
	Users     *services.UserService
	Clients   *services.ClientService
	Invoices  *services.InvoiceService
	Allocator *sequence.Allocator
}

// NewRouterConfig builds the allocator over the database, the services on top
// of it and the HTTP handlers on top of those.
func NewRouterConfig(db *gorm.DB, seq config.SequenceConfig, sender mail.Sender) *RouterConfig {
	alloc := NewAllocator(db, seq)

	users := services.NewUserService(db)
	clients := services.NewClientService(db)
	invoices := services.NewInvoiceService(db, alloc)

	return &RouterConfig{
		AuthHandler:      handlers.NewAuthHandler(users),
		ProfileHandler:   handlers.NewProfileHandler(users),
		ClientHandler:    handlers.NewClientHandler(clients),
		InvoiceHandler:   handlers.NewInvoiceHandler(invoices, users, sender),
		DashboardHandler: handlers.NewDashboardHandler(invoices),
		Users:            users,
		Clients:          clients,
		Invoices:         invoices,
		Allocator:        alloc,
	}
}

// NewAllocator returns an allocator persisting buckets in db, tuned by seq.
// Zero values keep the allocator defaults.
func NewAllocator(db *gorm.DB, seq config.SequenceConfig) *sequence.Allocator {
	var opts []sequence.Option
	if seq.MaxAttempts > 0 {
		opts = append(opts, sequence.WithMaxAttempts(seq.MaxAttempts))
	}
	if seq.BaseDelay > 0 && seq.MaxDelay > 0 {
		opts = append(opts, sequence.WithBackoff(seq.BaseDelay, seq.MaxDelay))
	}
	return sequence.NewAllocator(sequence.NewGormStore(db), opts...)
}

// UserExists adapts the user service to the session verifier signature.
func (c *RouterConfig) UserExists(ctx context.Context, uid string) bool {
	return c.Users.Exists(ctx, uid)
}
