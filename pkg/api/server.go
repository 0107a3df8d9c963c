package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bookcourier/bookcourier/pkg/auth"
	"github.com/bookcourier/bookcourier/pkg/httputil"
	"github.com/bookcourier/bookcourier/pkg/observability"
	"github.com/bookcourier/bookcourier/pkg/rbac"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

// PaymentRecorder persists a confirmed charge and its side effects.
// Implemented by payments.Service.
type PaymentRecorder interface {
	Record(ctx context.Context, payment *Payment) error
}

// IntentCreator obtains a charge intent from the payment provider.
// Implemented by payments.StripeClient.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amountCents int64) (intentID, clientSecret string, err error)
}

// ServerConfig carries the server's collaborators.
type ServerConfig struct {
	Store    storage.Store
	Signer   *auth.Signer
	Gate     *rbac.Gate
	Roles    rbac.Resolver
	Payments PaymentRecorder
	Intents  IntentCreator
	Logger   *observability.Logger
	Metrics  *observability.Metrics

	// InvalidateRole is called after role promotions. Nil when the role
	// cache is disabled.
	InvalidateRole func(email string)
}

// Server routes BookCourier API requests.
type Server struct {
	router *mux.Router

	store          storage.Store
	signer         *auth.Signer
	gate           *rbac.Gate
	roles          rbac.Resolver
	payments       PaymentRecorder
	intents        IntentCreator
	logger         *observability.Logger
	metrics        *observability.Metrics
	invalidateRole func(email string)
}

// NewServer creates the API server and wires up all routes.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		router:         mux.NewRouter(),
		store:          cfg.Store,
		signer:         cfg.Signer,
		gate:           cfg.Gate,
		roles:          cfg.Roles,
		payments:       cfg.Payments,
		intents:        cfg.Intents,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		invalidateRole: cfg.InvalidateRole,
	}
	s.setupRoutes()
	return s
}

// Router returns the configured handler for mounting middleware around.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all the API routes. Fixed path segments are
// registered before their {id} siblings so mux matches them first.
func (s *Server) setupRoutes() {
	g := s.gate

	s.router.HandleFunc("/", s.liveness).Methods("GET")
	s.router.HandleFunc("/jwt", s.issueToken).Methods("POST")

	// Users
	s.router.HandleFunc("/users", s.registerUser).Methods("POST")
	s.router.Handle("/users", s.admin(s.listUsers)).Methods("GET")
	s.router.Handle("/users/role/{email}", s.self(g.RequireSelfPath("email"), s.getUserRole)).Methods("GET")
	s.router.Handle("/users/admin/{id}", s.admin(s.promoteToAdmin)).Methods("PATCH")
	s.router.Handle("/users/librarian/{id}", s.admin(s.promoteToLibrarian)).Methods("PATCH")

	// Books
	s.router.HandleFunc("/books", s.listPublishedBooks).Methods("GET")
	s.router.Handle("/books", s.librarian(s.createBook)).Methods("POST")
	s.router.Handle("/books/admin", s.admin(s.listAllBooks)).Methods("GET")
	s.router.Handle("/books/librarian/{email}", s.librarian(s.listLibrarianBooks)).Methods("GET")
	s.router.Handle("/books/status/{id}", s.admin(s.updateBookStatus)).Methods("PATCH")
	s.router.HandleFunc("/books/{id}", s.getBook).Methods("GET")
	s.router.Handle("/books/{id}", s.librarian(s.updateBook)).Methods("PATCH")
	s.router.Handle("/books/{id}", s.admin(s.deleteBook)).Methods("DELETE")

	// Orders
	s.router.Handle("/orders", s.self(g.RequireSelfQuery("email"), s.listUserOrders)).Methods("GET")
	s.router.Handle("/orders", s.authed(s.createOrder)).Methods("POST")
	s.router.Handle("/orders/librarian/{email}", s.librarian(s.listLibrarianOrders)).Methods("GET")
	s.router.Handle("/orders/status/{id}", s.librarian(s.updateOrderStatus)).Methods("PATCH")
	s.router.Handle("/orders/{id}", s.authed(s.getOrder)).Methods("GET")
	s.router.Handle("/orders/{id}", s.authed(s.deleteOrder)).Methods("DELETE")

	// Wishlist
	s.router.Handle("/wishlist", s.self(g.RequireSelfQuery("email"), s.listWishlist)).Methods("GET")
	s.router.Handle("/wishlist", s.authed(s.addToWishlist)).Methods("POST")
	s.router.Handle("/wishlist/{id}", s.authed(s.removeFromWishlist)).Methods("DELETE")

	// Reviews
	s.router.HandleFunc("/reviews/{bookId}", s.listReviews).Methods("GET")
	s.router.Handle("/reviews", s.authed(s.createReview)).Methods("POST")

	// Payments
	s.router.Handle("/create-payment-intent", s.authed(s.createPaymentIntent)).Methods("POST")
	s.router.Handle("/payments", s.self(g.RequireSelfQuery("email"), s.listPayments)).Methods("GET")
	s.router.Handle("/payments", s.authed(s.recordPayment)).Methods("POST")
}

// authed mounts a handler behind credential verification only.
func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return s.gate.RequireAuth(h)
}

// admin mounts a handler behind authentication plus the admin role.
func (s *Server) admin(h http.HandlerFunc) http.Handler {
	return s.gate.RequireAuth(s.gate.RequireAdmin(h))
}

// librarian mounts a handler behind authentication plus librarian or
// admin role.
func (s *Server) librarian(h http.HandlerFunc) http.Handler {
	return s.gate.RequireAuth(s.gate.RequireLibrarian(h))
}

// self mounts a handler behind authentication plus an identity match.
func (s *Server) self(match func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
	return s.gate.RequireAuth(match(h))
}

// liveness answers the root probe the frontend pings on load.
func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("BookCourier server is running"))
}

// internalError logs the fault and answers with the generic 500 body.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.FromContext(r.Context()).WithError(err).Error(msg)
	httputil.WriteInternalError(w)
}
