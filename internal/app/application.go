package app

import (
	"context"
	"fmt"

	"github.com/R3E-Network/canteen_pos/internal/app/events"
	"github.com/R3E-Network/canteen_pos/internal/app/services/admin"
	"github.com/R3E-Network/canteen_pos/internal/app/services/auth"
	"github.com/R3E-Network/canteen_pos/internal/app/services/catalog"
	"github.com/R3E-Network/canteen_pos/internal/app/services/checkout"
	"github.com/R3E-Network/canteen_pos/internal/app/services/shops"
	"github.com/R3E-Network/canteen_pos/internal/app/session"
	"github.com/R3E-Network/canteen_pos/internal/app/storage"
	"github.com/R3E-Network/canteen_pos/internal/app/storage/memory"
	"github.com/R3E-Network/canteen_pos/internal/app/system"
	"github.com/R3E-Network/canteen_pos/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Students storage.StudentStore
	Admins   storage.AdminStore
	Shops    storage.ShopStore
	Menu     storage.MenuStore
	Orders   storage.OrderStore
	Reports  storage.ReportStore
}

// Options configures the session layer and event fan-out.
type Options struct {
	// Sessions defaults to an in-memory store swept on SweepSchedule.
	Sessions      session.Store
	SweepSchedule string
	// AllowedOrigins restricts browsers connecting to the order stream. Empty
	// accepts any origin.
	AllowedOrigins []string
	// Publishers receive order events next to the websocket hub. Publishers
	// that are also system.Service are started and stopped with the app.
	Publishers []events.Publisher
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Sessions session.Store
	Hub      *events.Hub

	Catalog  *catalog.Service
	Checkout *checkout.Service
	Shops    *shops.Service
	Admin    *admin.Service
	Auth     *auth.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Students == nil {
		stores.Students = mem
	}
	if stores.Admins == nil {
		stores.Admins = mem
	}
	if stores.Shops == nil {
		stores.Shops = mem
	}
	if stores.Menu == nil {
		stores.Menu = mem
	}
	if stores.Orders == nil {
		stores.Orders = mem
	}
	if stores.Reports == nil {
		stores.Reports = mem
	}

	manager := system.NewManager()
	hub := events.NewHub(opts.AllowedOrigins, log.Named("order-stream"))

	services := []system.Service{hub}
	publisher := events.Multi{hub}
	for _, p := range opts.Publishers {
		if p == nil {
			continue
		}
		publisher = append(publisher, p)
		if svc, ok := p.(system.Service); ok {
			services = append(services, svc)
		}
	}

	sessions := opts.Sessions
	if sessions == nil {
		memSessions := session.NewMemoryStore()
		services = append(services, session.NewSweeper(memSessions, opts.SweepSchedule, log.Named("session-sweeper")))
		sessions = memSessions
	}

	for _, svc := range services {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:  manager,
		log:      log,
		Sessions: sessions,
		Hub:      hub,
		Catalog:  catalog.New(stores.Shops, stores.Menu, log.Named("catalog")),
		Checkout: checkout.New(stores.Orders, publisher, log.Named("checkout")),
		Shops:    shops.New(stores.Menu, stores.Orders, stores.Reports, publisher, log.Named("shops")),
		Admin:    admin.New(stores.Students, stores.Shops, stores.Admins, log.Named("admin")),
		Auth:     auth.New(stores.Students, stores.Shops, stores.Admins, log.Named("auth")),
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
