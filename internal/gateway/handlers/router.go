package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rbent/api-gateway/internal/gateway/proxy"
	"github.com/rbent/api-gateway/internal/gateway/providers"
	"github.com/rbent/api-gateway/internal/gateway/ratelimit"
	"github.com/rbent/api-gateway/internal/shared/config"
	"github.com/rbent/api-gateway/internal/shared/store"
)

// RouterDeps bundles everything the router wires together. Store and Google
// may be nil; the matching routes then degrade rather than panic.
type RouterDeps struct {
	Config   *config.Config
	Store    *store.Store
	Google   *GoogleClients
	Manager  *providers.Manager
	Limiter  *ratelimit.Limiter
	KB       *proxy.Forwarder
	Notifier *NotifyHandler
}

// NewRouter builds the HTTP surface. /health is public; everything else sits
// behind the auth gate, and the AI route additionally behind the rate
// limiter.
func NewRouter(deps RouterDeps) http.Handler {
	mw := NewMiddleware(deps.Config.APIKey, deps.Limiter)

	health := NewHealthHandler(deps.Store)
	chat := NewChatHandler(deps.Manager, deps.Store, deps.Config.DefaultAIModel)
	kb := NewKBHandler(deps.KB)
	status := NewStatusHandler(deps.Config, deps.Store)
	notify := deps.Notifier
	if notify == nil {
		notify = NewNotifyHandler(deps.Config.PushoverUserKey, deps.Config.PushoverAPIToken)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger)

	r.Get("/health", health.Health)

	r.Group(func(r chi.Router) {
		r.Use(mw.Auth)

		r.Route("/ai/v1", func(r chi.Router) {
			r.Use(mw.RateLimit)
			r.Post("/chat/completions", chat.ChatCompletion)
			r.Get("/models", chat.Models)
		})

		if deps.Google != nil {
			calendar := NewCalendarHandler(deps.Google)
			r.Route("/calendar", func(r chi.Router) {
				r.Get("/events", calendar.Events)
				r.Post("/events", calendar.CreateEvent)
				r.Get("/today", calendar.Today)
			})

			tasks := NewTasksHandler(deps.Google)
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/lists", tasks.Lists)
				r.Get("/lists/{listID}/tasks", tasks.Tasks)
				r.Post("/lists/{listID}/tasks", tasks.Create)
				r.Patch("/lists/{listID}/tasks/{taskID}", tasks.Update)
				r.Delete("/lists/{listID}/tasks/{taskID}", tasks.Delete)
			})

			email := NewEmailHandler(deps.Google)
			r.Route("/email", func(r chi.Router) {
				r.Get("/unread", email.Unread)
				r.Get("/messages", email.Messages)
				r.Get("/messages/{messageID}", email.Message)
			})

			storage := NewStorageHandler(deps.Google)
			r.Route("/storage", func(r chi.Router) {
				r.Get("/files", storage.Files)
				r.Get("/files/{fileID}", storage.File)
				r.Get("/files/{fileID}/download", storage.Download)
			})
		} else {
			googleUnavailable := func(w http.ResponseWriter, _ *http.Request) {
				respondError(w, http.StatusServiceUnavailable, "auth_error", "google credentials not configured")
			}
			for _, prefix := range []string{"/calendar", "/tasks", "/email", "/storage"} {
				r.HandleFunc(prefix, googleUnavailable)
				r.HandleFunc(prefix+"/*", googleUnavailable)
			}
		}

		// KB paths forward verbatim, any method.
		r.HandleFunc("/kb", kb.Proxy)
		r.HandleFunc("/kb/*", kb.Proxy)

		search := NewSearchHandler(deps.Config.TavilyAPIKey)
		r.Route("/search", func(r chi.Router) {
			r.Post("/web", search.Web)
			r.Post("/web/fetch", search.Fetch)
		})

		r.Post("/notify", notify.Send)

		r.Route("/status", func(r chi.Router) {
			r.Get("/integrations", status.Integrations)
			r.Get("/integrations/{name}", status.Integration)
			r.Get("/requests", status.Requests)
		})
	})

	return r
}
