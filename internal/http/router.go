package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Users      *UserHandler
	Meetings   *MeetingHandler
	Periods    *PeriodHandler
	Attendance *AttendanceHandler
	Excuses    *ExcuseHandler
	Reports    *ReportHandler
	Imports    *ImportHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Users != nil {
		mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Users.List(w, r)
			case http.MethodPost:
				cfg.Users.Register(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
			id, rest := splitResource(r.URL.Path, "/users/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch {
			case rest == "" && r.Method == http.MethodDelete:
				cfg.Users.Delete(w, r)
			case rest == "":
				methodNotAllowed(w, http.MethodDelete)
			case rest == "admin" && r.Method == http.MethodPut:
				cfg.Users.SetAdmin(w, r)
			case rest == "admin":
				methodNotAllowed(w, http.MethodPut)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Meetings != nil {
		mux.HandleFunc("/meetings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Meetings.List(w, r)
			case http.MethodPost:
				cfg.Meetings.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/meetings/", func(w http.ResponseWriter, r *http.Request) {
			id, rest := splitResource(r.URL.Path, "/meetings/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch {
			case rest == "" && r.Method == http.MethodGet:
				cfg.Meetings.Get(w, r)
			case rest == "" && r.Method == http.MethodDelete:
				cfg.Meetings.Delete(w, r)
			case rest == "":
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			case rest == "attendance" && r.Method == http.MethodGet:
				cfg.Meetings.Attendance(w, r)
			case rest == "attendance":
				methodNotAllowed(w, http.MethodGet)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Periods != nil {
		mux.HandleFunc("/periods", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Periods.List(w, r)
			case http.MethodPost:
				cfg.Periods.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/periods/", func(w http.ResponseWriter, r *http.Request) {
			id, rest := splitResource(r.URL.Path, "/periods/")
			if id == "" || rest != "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Periods.Get(w, r.WithContext(ContextWithResourceID(r.Context(), id)))
		})
	}

	if cfg.Attendance != nil {
		mux.HandleFunc("/attendance", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				cfg.Attendance.Log(w, r)
			case http.MethodPut:
				cfg.Attendance.Edit(w, r)
			default:
				methodNotAllowed(w, http.MethodPost, http.MethodPut)
			}
		})
		mux.HandleFunc("/attendance/repair", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Attendance.Repair(w, r)
		})
	}

	if cfg.Excuses != nil {
		mux.HandleFunc("/excuse-requests", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Excuses.List(w, r)
			case http.MethodPost:
				cfg.Excuses.Submit(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/excuse-requests/", func(w http.ResponseWriter, r *http.Request) {
			id, rest := splitResource(r.URL.Path, "/excuse-requests/")
			if id == "" || (rest != "approve" && rest != "deny") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			if rest == "approve" {
				cfg.Excuses.Approve(w, r)
				return
			}
			cfg.Excuses.Deny(w, r)
		})
		mux.HandleFunc("/excuses", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Excuses.Direct(w, r)
		})
	}

	if cfg.Reports != nil {
		mux.HandleFunc("/reports/", func(w http.ResponseWriter, r *http.Request) {
			id, rest := splitResource(r.URL.Path, "/reports/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch userID, ok := strings.CutPrefix(rest, "users/"); {
			case rest == "":
				cfg.Reports.Period(w, r)
			case ok && userID != "" && !strings.Contains(userID, "/"):
				cfg.Reports.User(w, r, userID)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Imports != nil {
		mux.HandleFunc("/imports", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Imports.Create(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// splitResource returns the identifier after prefix and whatever follows it.
func splitResource(path, prefix string) (id, rest string) {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	id, rest, _ = strings.Cut(trimmed, "/")
	return id, rest
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
