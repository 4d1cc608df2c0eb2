// Package httpapi exposes the canteen services over JSON/HTTP.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	app "github.com/R3E-Network/canteen_pos/internal/app"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/identity"
	"github.com/R3E-Network/canteen_pos/internal/app/metrics"
	"github.com/R3E-Network/canteen_pos/internal/app/session"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
	"github.com/R3E-Network/canteen_pos/internal/httputil"
	"github.com/R3E-Network/canteen_pos/internal/middleware"
	"github.com/R3E-Network/canteen_pos/pkg/logger"
)

// Config carries the HTTP-only settings of the API.
type Config struct {
	Tokens         *session.Tokens
	SecureCookie   bool
	AllowedOrigins []string
	LoginPerMinute int
	LoginBurst     int
	// Now overrides the clock used for reports and sessions.
	Now func() time.Time
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app    *app.Application
	cfg    Config
	auth   *middleware.AuthMiddleware
	logins *middleware.RateLimiter
	log    *logger.Logger
}

// NewHandler returns the full API with its middleware chain.
func NewHandler(application *app.Application, cfg Config, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("http")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	h := &handler{
		app:    application,
		cfg:    cfg,
		auth:   middleware.NewAuthMiddleware(cfg.Tokens, application.Sessions, log.Named("auth")),
		logins: middleware.NewRateLimiter(cfg.LoginPerMinute, cfg.LoginBurst, log.Named("ratelimit")),
		log:    log,
	}

	router := h.routes()
	var root http.Handler = router
	root = middleware.LoggingMiddleware(log)(root)
	root = chimiddleware.Recoverer(root)
	root = chimiddleware.RealIP(root)
	root = chimiddleware.RequestID(root)
	root = middleware.NewCORSMiddleware(cfg.AllowedOrigins).Handler(root)
	return root
}

func (h *handler) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware())
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteErrorResponse(w, http.StatusNotFound, string(apperrors.CodeNotFound), "route not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteErrorResponse(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	login := api.PathPrefix("/auth").Subrouter()
	login.Handle("/{role}/login", h.logins.Handler(http.HandlerFunc(h.login))).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(h.auth.Handler)
	authed.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	authed.HandleFunc("/me", h.me).Methods(http.MethodGet)

	students := api.NewRoute().Subrouter()
	students.Use(h.auth.Handler, middleware.RequireRole(identity.RoleStudent))
	students.HandleFunc("/shops", h.listShops).Methods(http.MethodGet)
	students.HandleFunc("/shops/{shopID:[0-9]+}", h.getShop).Methods(http.MethodGet)
	students.HandleFunc("/shops/{shopID:[0-9]+}/menu", h.shopMenu).Methods(http.MethodGet)
	students.HandleFunc("/cart", h.getCart).Methods(http.MethodGet)
	students.HandleFunc("/cart", h.clearCart).Methods(http.MethodDelete)
	students.HandleFunc("/cart/items", h.addCartItem).Methods(http.MethodPost)
	students.HandleFunc("/cart/items/{itemID:[0-9]+}", h.removeCartItem).Methods(http.MethodDelete)
	students.HandleFunc("/checkout", h.checkout).Methods(http.MethodPost)
	students.HandleFunc("/orders", h.studentOrders).Methods(http.MethodGet)

	shops := api.PathPrefix("/shop").Subrouter()
	shops.Use(h.auth.Handler, middleware.RequireRole(identity.RoleShop))
	shops.HandleFunc("/menu", h.shopListMenu).Methods(http.MethodGet)
	shops.HandleFunc("/menu", h.shopAddMenuItem).Methods(http.MethodPost)
	shops.HandleFunc("/menu/{itemID:[0-9]+}/availability", h.shopToggleItem).Methods(http.MethodPatch)
	shops.HandleFunc("/report", h.shopReport).Methods(http.MethodGet)
	shops.HandleFunc("/orders", h.shopOrders).Methods(http.MethodGet)
	shops.HandleFunc("/orders/stream", h.shopOrderStream).Methods(http.MethodGet)
	shops.HandleFunc("/orders/{orderID:[0-9]+}/complete", h.shopCompleteOrder).Methods(http.MethodPost)
	shops.HandleFunc("/orders/{orderID:[0-9]+}/cancel", h.shopCancelOrder).Methods(http.MethodPost)

	admins := api.PathPrefix("/admin").Subrouter()
	admins.Use(h.auth.Handler, middleware.RequireRole(identity.RoleAdmin))
	admins.HandleFunc("/students", h.adminListStudents).Methods(http.MethodGet)
	admins.HandleFunc("/students", h.adminCreateStudent).Methods(http.MethodPost)
	admins.HandleFunc("/students/{studentID}", h.adminGetStudent).Methods(http.MethodGet)
	admins.HandleFunc("/students/{studentID}", h.adminEditStudent).Methods(http.MethodPut)
	admins.HandleFunc("/students/{studentID}", h.adminDeleteStudent).Methods(http.MethodDelete)
	admins.HandleFunc("/shops", h.adminListShops).Methods(http.MethodGet)
	admins.HandleFunc("/shops", h.adminCreateShop).Methods(http.MethodPost)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// currentSession returns the session placed in the context by AuthMiddleware.
func currentSession(r *http.Request) session.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput("invalid "+name).WithDetails(name, raw)
	}
	return id, nil
}
