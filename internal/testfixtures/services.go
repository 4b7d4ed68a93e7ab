package testfixtures

import (
	"io"
	"log/slog"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/compliance"
	"github.com/example/attendance-engine/internal/persistence"
	"github.com/example/attendance-engine/internal/persistence/memory"
)

// ServiceFactory builds application services sharing one store, clock and
// identifier sequence.
type ServiceFactory struct {
	Store       persistence.Store
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a factory over an empty in-memory store.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Store:       memory.New(),
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    time.UTC,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// WithStore replaces the in-memory store.
func WithStore(store persistence.Store) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Store = store }
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Clock = clock }
}

// WithLocation sets the organisation timezone.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Location = loc }
}

// Dependencies returns the shared service dependencies.
func (f *ServiceFactory) Dependencies() application.Dependencies {
	return application.Dependencies{
		Store:       f.Store,
		IDGenerator: f.IDGenerator.Next,
		Now:         f.Clock.Now,
		Location:    f.Location,
		Logger:      f.Logger,
	}
}

func (f *ServiceFactory) Catalog() *application.CatalogService {
	return application.NewCatalogService(f.Dependencies())
}

func (f *ServiceFactory) Ledger() *application.LedgerService {
	return application.NewLedgerService(f.Dependencies())
}

func (f *ServiceFactory) Excuses() *application.ExcuseService {
	return application.NewExcuseService(f.Dependencies())
}

func (f *ServiceFactory) Users() *application.UserService {
	return application.NewUserService(f.Dependencies())
}

// Reports builds a report service with the default thresholds.
func (f *ServiceFactory) Reports() *application.ReportService {
	return application.NewReportService(f.Dependencies(), compliance.DefaultThresholds())
}

// Imports builds an import service using the default sheet layout.
func (f *ServiceFactory) Imports() *application.ImportService {
	return application.NewImportService(f.Dependencies(), application.ImportOptions{})
}
