package http

import (
	"log/slog"
	"net/http"

	"github.com/example/attendance-engine/internal/application"
)

// Services bundles the application services exposed over HTTP.
type Services struct {
	Users   *application.UserService
	Catalog *application.CatalogService
	Ledger  *application.LedgerService
	Excuses *application.ExcuseService
	Reports *application.ReportService
	Imports *application.ImportService
}

// NewServices builds every service from one set of dependencies.
func NewServices(deps application.Dependencies, reports *application.ReportService, imports *application.ImportService) Services {
	return Services{
		Users:   application.NewUserService(deps),
		Catalog: application.NewCatalogService(deps),
		Ledger:  application.NewLedgerService(deps),
		Excuses: application.NewExcuseService(deps),
		Reports: reports,
		Imports: imports,
	}
}

// NewAPI returns the full router with request logging and principal
// resolution applied to every route.
func NewAPI(s Services, logger *slog.Logger) http.Handler {
	return NewRouter(RouterConfig{
		Users:      NewUserHandler(s.Users, logger),
		Meetings:   NewMeetingHandler(s.Catalog, logger),
		Periods:    NewPeriodHandler(s.Catalog, logger),
		Attendance: NewAttendanceHandler(s.Ledger, logger),
		Excuses:    NewExcuseHandler(s.Excuses, logger),
		Reports:    NewReportHandler(s.Reports, s.Catalog, logger),
		Imports:    NewImportHandler(s.Imports, logger),
		Middleware: []func(http.Handler) http.Handler{
			RequestLogger(logger),
			RequirePrincipal(s.Users, logger),
		},
	})
}
