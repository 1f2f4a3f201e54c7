// Package fakebackend runs an in-process imitation of the VendorIQ HTTP API
// for tests: JWT login, registration, profile, products, sales and the
// dashboard summary. Behaviour can be overridden per route to script
// failures, delays and races.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const (
	signingSecret = "fakebackend-secret"

	DefaultLoginFailureDetail = "No active account found with the given credentials"
	InvalidTokenDetail        = "Given token not valid for any token type"
)

// Request is one request the backend received.
type Request struct {
	Method        string
	Path          string
	Authorization string
}

type vendor struct {
	ID           int64
	Email        string
	Password     string
	FullName     string
	BusinessName string
}

type product struct {
	ID                int64
	Vendor            int64
	Name              string
	Category          string
	Price             decimal.Decimal
	Stock             int64
	LowStockThreshold int64
	MarketPrice       *decimal.Decimal
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type sale struct {
	ID         int64
	Product    int64
	Quantity   int64
	TotalPrice decimal.Decimal
	Date       time.Time
}

// Backend is the fake API. Its zero value is not usable; call New.
type Backend struct {
	Server *httptest.Server

	// LoginFailureDetail is returned as "detail" for bad credentials.
	LoginFailureDetail string

	mu        sync.Mutex
	nextID    int64
	vendors   map[string]*vendor
	tokens    map[string]string // access token -> email
	products  map[int64]*product
	sales     map[int64]*sale
	requests  []Request
	overrides map[string]http.HandlerFunc
}

// New starts a backend that is shut down when t finishes.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		LoginFailureDetail: DefaultLoginFailureDetail,
		vendors:            make(map[string]*vendor),
		tokens:             make(map[string]string),
		products:           make(map[int64]*product),
		sales:              make(map[int64]*sale),
		overrides:          make(map[string]http.HandlerFunc),
	}
	b.Server = httptest.NewServer(b.router())
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the base endpoint clients should be configured with.
func (b *Backend) URL() string {
	return b.Server.URL + "/api/"
}

func (b *Backend) router() http.Handler {
	r := mux.NewRouter()
	r.Use(b.record)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login/", b.route(RouteLogin, b.login)).Methods(http.MethodPost)
	api.HandleFunc("/auth/register/", b.route(RouteRegister, b.register)).Methods(http.MethodPost)
	api.HandleFunc("/auth/profile/", b.route(RouteProfile, chainMiddleware(b.profile, b.requireAuth))).Methods(http.MethodGet)

	api.HandleFunc("/products/", b.route(RouteProducts, chainMiddleware(b.listProducts, b.requireAuth))).Methods(http.MethodGet)
	api.HandleFunc("/products/", b.route(RouteProducts, chainMiddleware(b.createProduct, b.requireAuth))).Methods(http.MethodPost)
	api.HandleFunc("/products/{id:[0-9]+}/", b.route(RouteProducts, chainMiddleware(b.getProduct, b.requireAuth))).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}/", b.route(RouteProducts, chainMiddleware(b.updateProduct, b.requireAuth))).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/products/{id:[0-9]+}/", b.route(RouteProducts, chainMiddleware(b.deleteProduct, b.requireAuth))).Methods(http.MethodDelete)

	api.HandleFunc("/sales/", b.route(RouteSales, chainMiddleware(b.listSales, b.requireAuth))).Methods(http.MethodGet)
	api.HandleFunc("/sales/", b.route(RouteSales, chainMiddleware(b.createSale, b.requireAuth))).Methods(http.MethodPost)
	api.HandleFunc("/sales/{id:[0-9]+}/", b.route(RouteSales, chainMiddleware(b.deleteSale, b.requireAuth))).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard/", b.route(RouteDashboard, chainMiddleware(b.dashboard, b.requireAuth))).Methods(http.MethodGet)
	return r
}

// Route names accepted by Override.
const (
	RouteLogin     = "login"
	RouteRegister  = "register"
	RouteProfile   = "profile"
	RouteProducts  = "products"
	RouteSales     = "sales"
	RouteDashboard = "dashboard"
)

// Override replaces the handler for a route until cleared with a nil
// handler. Authentication is not checked for overridden routes.
func (b *Backend) Override(route string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h == nil {
		delete(b.overrides, route)
		return
	}
	b.overrides[route] = h
}

func (b *Backend) route(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		override := b.overrides[name]
		b.mu.Unlock()
		if override != nil {
			chainMiddleware(override, b.recoverMiddleware)(w, r)
			return
		}
		chainMiddleware(next, b.recoverMiddleware)(w, r)
	}
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        r.Method,
			Path:          strings.TrimPrefix(r.URL.Path, "/api/"),
			Authorization: r.Header.Get("Authorization"),
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Requests returns every request received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Count returns how many requests were made to path ("auth/profile/").
func (b *Backend) Count(path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

// AddVendor registers an account directly.
func (b *Backend) AddVendor(email, password, fullName, businessName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addVendorLocked(email, password, fullName, businessName)
}

func (b *Backend) addVendorLocked(email, password, fullName, businessName string) *vendor {
	b.nextID++
	v := &vendor{ID: b.nextID, Email: email, Password: password, FullName: fullName, BusinessName: businessName}
	b.vendors[email] = v
	return v
}

// UpdateVendor changes the profile the backend reports for email.
func (b *Backend) UpdateVendor(email, fullName, businessName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.vendors[email]; ok {
		v.FullName = fullName
		v.BusinessName = businessName
	}
}

// IssueToken mints a valid access/refresh pair for email, as a login would.
func (b *Backend) IssueToken(email string) (string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(email)
}

func (b *Backend) issueLocked(email string) (string, string) {
	b.nextID++
	var userID int64
	if v, ok := b.vendors[email]; ok {
		userID = v.ID
	}
	now := time.Now()
	sign := func(kind string, ttl time.Duration) string {
		raw, _ := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
			"token_type": kind,
			"user_id":    userID,
			"jti":        fmt.Sprintf("%s-%d", kind, b.nextID),
			"iat":        now.Unix(),
			"exp":        now.Add(ttl).Unix(),
		}).SignedString([]byte(signingSecret))
		return raw
	}
	access := sign("access", 5*time.Minute)
	b.tokens[access] = email
	return access, sign("refresh", 24*time.Hour)
}

// RevokeAll invalidates every issued access token, as expiry would.
func (b *Backend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = make(map[string]string)
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}
	if missing := requiredFields(map[string]string{"email": req.Email, "password": req.Password}); missing != nil {
		writeJSON(w, http.StatusBadRequest, missing)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.vendors[req.Email]
	if !ok || v.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": b.LoginFailureDetail})
		return
	}
	access, refresh := b.issueLocked(req.Email)
	writeJSON(w, http.StatusOK, map[string]any{"access": access, "refresh": refresh})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		FullName     string `json:"full_name"`
		BusinessName string `json:"business_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}
	if missing := requiredFields(map[string]string{
		"email":         req.Email,
		"password":      req.Password,
		"full_name":     req.FullName,
		"business_name": req.BusinessName,
	}); missing != nil {
		writeJSON(w, http.StatusBadRequest, missing)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.vendors[req.Email]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"email": []string{"vendor with this email already exists."}})
		return
	}
	v := b.addVendorLocked(req.Email, req.Password, req.FullName, req.BusinessName)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":            v.ID,
		"email":         v.Email,
		"full_name":     v.FullName,
		"business_name": v.BusinessName,
	})
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request) {
	v := vendorFrom(r)
	b.mu.Lock()
	body := map[string]any{
		"id":            v.ID,
		"email":         v.Email,
		"full_name":     v.FullName,
		"business_name": v.BusinessName,
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func requiredFields(fields map[string]string) map[string]any {
	missing := make(map[string]any)
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing[name] = []string{"This field may not be blank."}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return missing
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON is exported for tests that override a route.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	writeJSON(w, status, body)
}
