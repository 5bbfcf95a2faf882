package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/api/recovery"
	"github.com/mycelian/postybirb/internal/broadcast"
	"github.com/mycelian/postybirb/internal/metrics"
	"github.com/mycelian/postybirb/internal/services"
	"github.com/mycelian/postybirb/internal/websites"
)

// Deps is everything the HTTP surface calls into.
type Deps struct {
	Submissions *services.SubmissionService
	Files       *services.FileSubmissionService
	Options     *services.WebsiteOptionService
	Accounts    *services.AccountService
	Watchers    *services.DirectoryWatcherService
	Settings    *services.SettingsService
	Posts       *services.PostService
	Registry    *websites.Registry
	Hub         *broadcast.Hub
	Health      func() (bool, map[string]bool)
	Log         zerolog.Logger
}

// NewRouter creates the HTTP router with every API route.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware(d.Log))
	router.Use(recovery.AccessLog(d.Log))

	sh := &SubmissionHandler{subs: d.Submissions, files: d.Files, options: d.Options, posts: d.Posts}
	ah := &AccountHandler{accounts: d.Accounts}
	wh := &WatcherHandler{watchers: d.Watchers}
	st := &SettingsHandler{settings: d.Settings}
	ws := &WebsiteHandler{registry: d.Registry}
	hh := &HealthHandler{check: d.Health}

	// Health endpoints
	router.HandleFunc("/api/health", hh.CheckHealth).Methods("GET")

	// Submission endpoints
	router.HandleFunc("/api/submissions", sh.Create).Methods("POST")
	router.HandleFunc("/api/submissions", sh.List).Methods("GET")
	router.HandleFunc("/api/submissions/{id}", sh.Get).Methods("GET")
	router.HandleFunc("/api/submissions/{id}", sh.Update).Methods("PATCH")
	router.HandleFunc("/api/submissions/{id}", sh.Remove).Methods("DELETE")
	router.HandleFunc("/api/submissions/{id}/duplicate", sh.Duplicate).Methods("POST")
	router.HandleFunc("/api/submissions/{id}/files", sh.AppendFile).Methods("POST")
	router.HandleFunc("/api/submissions/{id}/files/{fileId}", sh.RemoveFile).Methods("DELETE")
	router.HandleFunc("/api/submissions/{id}/files/{fileId}/alt", sh.SetAltFile).Methods("PUT")
	router.HandleFunc("/api/submissions/{id}/validate", sh.Validate).Methods("GET")
	router.HandleFunc("/api/submissions/{id}/post", sh.Post).Methods("POST")
	router.HandleFunc("/api/submissions/{id}/post/cancel", sh.CancelPost).Methods("POST")

	// Account endpoints
	router.HandleFunc("/api/accounts", ah.List).Methods("GET")
	router.HandleFunc("/api/accounts", ah.Create).Methods("POST")
	router.HandleFunc("/api/accounts/{id}", ah.Get).Methods("GET")
	router.HandleFunc("/api/accounts/{id}", ah.Update).Methods("PATCH")
	router.HandleFunc("/api/accounts/{id}", ah.Remove).Methods("DELETE")
	router.HandleFunc("/api/accounts/{id}/clear", ah.Clear).Methods("POST")

	// Directory watcher endpoints
	router.HandleFunc("/api/directory-watchers", wh.List).Methods("GET")
	router.HandleFunc("/api/directory-watchers", wh.Create).Methods("POST")
	router.HandleFunc("/api/directory-watchers/{id}", wh.Update).Methods("PATCH")
	router.HandleFunc("/api/directory-watchers/{id}", wh.Remove).Methods("DELETE")

	// Settings endpoints (startup registered before {id} so it is not captured)
	router.HandleFunc("/api/settings", st.List).Methods("GET")
	router.HandleFunc("/api/settings/startup", st.GetStartup).Methods("GET")
	router.HandleFunc("/api/settings/startup", st.UpdateStartup).Methods("PATCH")
	router.HandleFunc("/api/settings/{id}", st.Update).Methods("PATCH")

	// Website registry endpoints
	router.HandleFunc("/api/websites", ws.List).Methods("GET")
	router.HandleFunc("/api/websites/{website}/{kind}/model", ws.Model).Methods("GET")

	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	if d.Hub != nil {
		router.Handle("/ws", d.Hub.Handler())
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, "no route for "+r.Method+" "+r.URL.Path)
	})
	return router
}
