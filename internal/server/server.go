package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"librarian/internal/app"
	"librarian/internal/ratelimit"
	"librarian/internal/token"
	"librarian/internal/util"
	"librarian/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App         *app.App
	Tokens      *token.Codec
	AuthLimiter *ratelimit.FixedWindowLimiter
	TrustProxy  bool
}

// Server exposes the HTTP endpoints of the library backend.
type Server struct {
	app         *app.App
	tokens      *token.Codec
	authLimiter *ratelimit.FixedWindowLimiter
	trustProxy  bool
	mux         *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token codec is required")
	}
	s := &Server{
		app:         cfg.App,
		tokens:      cfg.Tokens,
		authLimiter: cfg.AuthLimiter,
		trustProxy:  cfg.TrustProxy,
		mux:         http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.Handle("/auth/register", s.withAuthLimit(http.HandlerFunc(s.handleRegister)))
	s.mux.Handle("/auth/login", s.withAuthLimit(http.HandlerFunc(s.handleLogin)))

	// books
	s.mux.Handle("/books", s.withMember(s.handleBooks))
	s.mux.Handle("/books/search", s.withMember(s.handleSearchBooks))
	s.mux.Handle("/books/", s.withMember(s.handleBookByID))

	// members
	s.mux.Handle("/members", s.withMember(s.handleMembers))
	s.mux.Handle("/members/", s.withMember(s.handleMemberByID))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Library Management System API",
		"status":  "running",
		"endpoints": map[string][]string{
			"auth":    {"/auth/register", "/auth/login"},
			"books":   {"/books", "/books/{id}", "/books/search"},
			"members": {"/members", "/members/{id}"},
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type memberIDContextKey struct{}

// MemberIDFromContext returns the authenticated subject id attached by the
// auth gate.
func MemberIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(memberIDContextKey{}).(int64)
	return id, ok
}

// memberHandler is a handler that requires an authenticated member. The
// subject id arrives as a parameter so handlers never read shared state.
type memberHandler func(http.ResponseWriter, *http.Request, int64)

// withMember gates a route on a valid bearer token. It touches no storage:
// a missing or bad credential is rejected before any store access.
func (s *Server) withMember(next memberHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
			writeError(w, http.StatusUnauthorized, "No authorization header")
			return
		}
		cred, ok := token.BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header")
			return
		}
		memberID, err := s.tokens.Verify(cred, time.Now())
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), memberIDContextKey{}, memberID)
		next(w, r.WithContext(ctx), memberID)
	})
}

// withAuthLimit applies the fixed-window limiter per client IP when one is
// configured.
func (s *Server) withAuthLimit(next http.Handler) http.Handler {
	if s.authLimiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authLimiter.Allow(util.ClientIP(r, s.trustProxy)) {
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type registerRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"name", req.Name},
		{"email", req.Email},
		{"password", req.Password},
	} {
		if field.value == nil {
			writeError(w, http.StatusBadRequest, "Missing required field: "+field.name)
			return
		}
	}
	member, tok, err := s.app.Register(*req.Name, *req.Email, *req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"token":   tok,
		"member":  member,
	})
}

type loginRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req loginRequest
	if err := decodeBody(r, &req); err != nil || req.Email == nil || req.Password == nil {
		writeError(w, http.StatusBadRequest, "Email and password required")
		return
	}
	member, tok, err := s.app.Login(*req.Email, *req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":  tok,
		"member": member,
	})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request, _ int64) {
	switch r.Method {
	case http.MethodGet:
		page, err := s.app.ListBooks(queryInt(r, "page"), queryInt(r, "per_page"))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		s.handleCreateBook(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSearchBooks(w http.ResponseWriter, r *http.Request, _ int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	books, err := s.app.SearchBooks(r.URL.Query().Get("q"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	book, ok := decodeBookBody(w, r)
	if !ok {
		return
	}
	created, err := s.app.CreateBook(book)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// /books/{id}
func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request, _ int64) {
	id, ok := pathID(w, r.URL.Path, "/books/", "Book not found")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		book, err := s.app.GetBook(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodPut:
		book, ok := decodeBookBody(w, r)
		if !ok {
			return
		}
		updated, err := s.app.UpdateBook(id, book)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := s.app.DeleteBook(id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Book deleted successfully"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request, _ int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page, err := s.app.ListMembers(queryInt(r, "page"), queryInt(r, "per_page"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// /members/{id}
func (s *Server) handleMemberByID(w http.ResponseWriter, r *http.Request, _ int64) {
	id, ok := pathID(w, r.URL.Path, "/members/", "Member not found")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		member, err := s.app.GetMember(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, member)
	case http.MethodPut:
		s.handleUpdateMember(w, r, id)
	case http.MethodDelete:
		if err := s.app.DeleteMember(id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Member deleted successfully"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request, id int64) {
	var raw map[string]json.RawMessage
	if err := decodeBody(r, &raw); err != nil || len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	_, emailPresent := raw["email"]
	upd := app.MemberUpdate{EmailPresent: emailPresent}
	if v, ok := raw["name"]; ok {
		var name string
		if err := json.Unmarshal(v, &name); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid name")
			return
		}
		upd.Name = &name
	}
	if v, ok := raw["password"]; ok {
		var password string
		if err := json.Unmarshal(v, &password); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid password")
			return
		}
		upd.Password = &password
	}
	member, err := s.app.UpdateMember(id, upd)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

type bookRequest struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn"`
	Quantity *int   `json:"quantity"`
}

func decodeBookBody(w http.ResponseWriter, r *http.Request) (domain.Book, bool) {
	var req bookRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return domain.Book{}, false
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "Missing required field: quantity")
		return domain.Book{}, false
	}
	return domain.Book{
		Title:    req.Title,
		Author:   req.Author,
		ISBN:     req.ISBN,
		Quantity: *req.Quantity,
	}, true
}

func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

func queryInt(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// pathID parses the trailing integer id of a resource path. Non-numeric or
// nested paths report not found.
func pathID(w http.ResponseWriter, path, prefix, notFoundMsg string) (int64, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, notFoundMsg)
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, notFoundMsg)
		return 0, false
	}
	return id, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeAppError maps core errors onto the HTTP contract. Unclassified
// errors surface their message with a 500.
func writeAppError(w http.ResponseWriter, err error) {
	var ve *app.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, app.ErrEmailExists), errors.Is(err, app.ErrISBNExists):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrBookNotFound), errors.Is(err, app.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
