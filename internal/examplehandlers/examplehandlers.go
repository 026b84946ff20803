// Package examplehandlers implements the demonstration endpoints
// referenced by the literal end-to-end scenarios: /login backed by an
// in-memory user store, /customer backed by a tiny in-memory table keyed
// by a 5-letter alphabetic id, plus the always-present built-ins /ping
// and /version. A real deployment would replace the in-memory stores
// with a database client; that client is intentionally out of scope
// here, same as the core's explicit non-goals.
package examplehandlers

import (
	"strings"
	"sync"

	"github.com/slicingmelon/go-apiserver/internal/apierror"
	"github.com/slicingmelon/go-apiserver/internal/httpparser"
	"github.com/slicingmelon/go-apiserver/internal/jwtauth"
	"github.com/slicingmelon/go-apiserver/internal/response"
)

// UserStore is a fixed in-memory credential table.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]string // username -> password
}

// NewUserStore seeds the store with the fixture account the scenarios
// in spec §8 exercise (mcordova/basica).
func NewUserStore() *UserStore {
	return &UserStore{users: map[string]string{"mcordova": "basica"}}
}

// Check reports whether username/password match a known account.
func (s *UserStore) Check(username, password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want, ok := s.users[username]
	return ok && want == password
}

// Customer is a record in the fixture customer table.
type Customer struct {
	ID      string `json:"id"`
	Company string `json:"company"`
	Country string `json:"country"`
}

// CustomerStore is a fixed in-memory table keyed by 5-letter id, mirroring
// the classic Northwind-style fixture data the scenario uses (ANATR,
// etc.) without pulling in a real database client.
type CustomerStore struct {
	mu        sync.RWMutex
	customers map[string]Customer
}

// NewCustomerStore seeds the store with a handful of fixture customers.
func NewCustomerStore() *CustomerStore {
	return &CustomerStore{customers: map[string]Customer{
		"ANATR": {ID: "ANATR", Company: "Ana Trujillo Emparedados", Country: "Mexico"},
		"BERGS": {ID: "BERGS", Company: "Berglunds snabbkop", Country: "Sweden"},
		"CACTU": {ID: "CACTU", Company: "Cactus Comidas para llevar", Country: "Argentina"},
	}}
}

// Find looks up a customer by id.
func (s *CustomerStore) Find(id string) (Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	return c, ok
}

// Handlers bundles the dependencies the example endpoints close over.
type Handlers struct {
	Users     *UserStore
	Customers *CustomerStore
	JWT       *jwtauth.Service
	PodName   string
	Version   string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /login: validates credentials, mints a bearer
// token on success (spec §8 scenario 2/3).
func (h *Handlers) Login(req *httpparser.Request, resp *response.Response) error {
	var body loginRequest
	if err := decodeJSON(req.Body, &body); err != nil {
		return apierror.BadRequest("Bad Request")
	}

	if !h.Users.Check(body.Username, body.Password) {
		return apierror.Unauthorized("Invalid credentials")
	}

	token, err := h.JWT.Mint(map[string]any{"user": body.Username})
	if err != nil {
		return apierror.Internal(err)
	}

	return resp.JSON(200, map[string]string{
		"token_type": "bearer",
		"id_token":   token,
	})
}

// Customer handles GET /customer?id=...: requires a valid bearer token
// and a 5-letter alphabetic id (spec §8 scenarios 4/5).
func (h *Handlers) Customer(req *httpparser.Request, resp *response.Response) error {
	if _, err := h.authenticate(req); err != nil {
		return err
	}

	id := req.Query["id"]
	if len(id) != 5 || !isAlpha(id) {
		return apierror.BadRequest("Customer ID must be exactly 5 alphabetic characters.")
	}

	customer, ok := h.Customers.Find(id)
	if !ok {
		return apierror.NotFound("Not Found")
	}
	return resp.JSON(200, customer)
}

// Ping handles GET /ping: always public (spec §6).
func Ping(_ *httpparser.Request, resp *response.Response) error {
	return resp.JSON(200, map[string]string{"status": "OK"})
}

// Version handles GET /version: requires the API key (enforced by the
// caller wiring metrics.CheckAPIKey in front of this handler).
func (h *Handlers) Version(_ *httpparser.Request, resp *response.Response) error {
	return resp.JSON(200, map[string]string{"pod_name": h.PodName, "version": h.Version})
}

func (h *Handlers) authenticate(req *httpparser.Request) (jwtauth.Claims, error) {
	auth := req.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return nil, apierror.Unauthorized("Invalid or missing token")
	}
	claims, err := h.JWT.Verify(strings.TrimPrefix(auth, prefix))
	if err != nil {
		return nil, apierror.Unauthorized("Invalid or missing token")
	}
	return claims, nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
