package http

import (
	"net/http"
	"strconv"
	"strings"
)

type RouterConfig struct {
	Customers  *CustomerHandler
	Lists      *ListHandler
	Rules      *RuleHandler
	Tours      *TourHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Customers != nil {
		mux.HandleFunc("/customers", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Customers.List(w, r)
			case http.MethodPost:
				cfg.Customers.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/customers/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/customers/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}
			id, action, _ := strings.Cut(rest, "/")
			r = r.WithContext(ContextWithCustomerID(r.Context(), id))

			switch {
			case action == "":
				switch r.Method {
				case http.MethodGet:
					cfg.Customers.Get(w, r)
				case http.MethodPut:
					cfg.Customers.Update(w, r)
				case http.MethodDelete:
					cfg.Customers.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case action == "vacations":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Customers.AddVacation(w, r)
			case strings.HasPrefix(action, "vacations/"):
				if r.Method != http.MethodDelete {
					methodNotAllowed(w, http.MethodDelete)
					return
				}
				index, err := strconv.Atoi(strings.TrimPrefix(action, "vacations/"))
				if err != nil {
					http.NotFound(w, r)
					return
				}
				cfg.Customers.RemoveVacation(w, r, index)
			case action == "completions":
				switch r.Method {
				case http.MethodPost:
					cfg.Customers.MarkCompleted(w, r)
				case http.MethodDelete:
					cfg.Customers.ClearCompletion(w, r)
				default:
					methodNotAllowed(w, http.MethodPost, http.MethodDelete)
				}
			case action == "reschedule":
				switch r.Method {
				case http.MethodPost:
					cfg.Customers.Reschedule(w, r)
				case http.MethodDelete:
					cfg.Customers.ClearReschedule(w, r)
				default:
					methodNotAllowed(w, http.MethodPost, http.MethodDelete)
				}
			case action == "slot-suggestions" && cfg.Tours != nil:
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Tours.Suggest(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Lists != nil {
		mux.HandleFunc("/lists", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Lists.List(w, r)
			case http.MethodPost:
				cfg.Lists.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/lists/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/lists/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}
			id, action, _ := strings.Cut(rest, "/")
			r = r.WithContext(ContextWithListID(r.Context(), id))

			switch action {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Lists.Get(w, r)
				case http.MethodPut:
					cfg.Lists.Update(w, r)
				case http.MethodDelete:
					cfg.Lists.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "terms":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Lists.GenerateTerms(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Rules != nil {
		mux.HandleFunc("/rules", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Rules.List(w, r)
			case http.MethodPost:
				cfg.Rules.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/rules/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/rules/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}
			id, action, _ := strings.Cut(rest, "/")
			r = r.WithContext(ContextWithRuleID(r.Context(), id))

			switch action {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Rules.Get(w, r)
				case http.MethodPut:
					cfg.Rules.Update(w, r)
				case http.MethodDelete:
					cfg.Rules.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "applications":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Rules.Apply(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Tours != nil {
		mux.HandleFunc("/tour", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Tours.Build(w, r)
		})
		mux.HandleFunc("/tour-slots", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Tours.ListSlots(w, r)
			case http.MethodPost:
				cfg.Tours.CreateSlot(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/tour-slots/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/tour-slots/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithSlotID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Tours.GetSlot(w, r)
			case http.MethodPut:
				cfg.Tours.UpdateSlot(w, r)
			case http.MethodDelete:
				cfg.Tours.DeleteSlot(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
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

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
