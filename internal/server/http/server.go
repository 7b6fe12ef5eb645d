// Package httpserver exposes the bucketlist REST API over gorilla/mux.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/and161185/bucketlist/internal/convert"
	"github.com/and161185/bucketlist/internal/errs"
	"github.com/and161185/bucketlist/internal/model"
	"github.com/and161185/bucketlist/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth    service.AuthService
	lists   service.BucketlistService
	items   service.ItemService
	paging  service.Paging
	log     *zap.Logger
	metrics *Metrics
	ready   func(context.Context) error
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics instruments every route and serves /metrics.
func WithMetrics(m *Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithPaging overrides the default page-size policy for list endpoints.
func WithPaging(p service.Paging) Option { return func(s *Server) { s.paging = p } }

// WithReadiness makes /healthz report the result of fn (typically a database ping).
func WithReadiness(fn func(context.Context) error) Option {
	return func(s *Server) { s.ready = fn }
}

// New constructs an HTTP server with injected services.
func New(auth service.AuthService, lists service.BucketlistService, items service.ItemService, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		auth:   auth,
		lists:  lists,
		items:  items,
		paging: service.DefaultPaging(),
		log:    log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the router with its middleware chain.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("resource not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
	})
	r.Use(RequestID, Logging(s.log), Instrument(s.metrics), Recover(s.log))

	r.HandleFunc("/help", s.help).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)

	api := r.PathPrefix("/bucketlists").Subrouter()
	api.Use(Authenticate(s.auth, s.metrics))
	api.HandleFunc("", s.listBucketlists).Methods(http.MethodGet)
	api.HandleFunc("", s.createBucketlist).Methods(http.MethodPost)
	api.HandleFunc("/{id:[0-9]+}", s.getBucketlist).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}", s.updateBucketlist).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/{id:[0-9]+}", s.deleteBucketlist).Methods(http.MethodDelete)
	api.HandleFunc("/{id:[0-9]+}/items", s.listItems).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}/items", s.createItem).Methods(http.MethodPost)
	api.HandleFunc("/{id:[0-9]+}/items/{item_id:[0-9]+}", s.updateItem).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/{id:[0-9]+}/items/{item_id:[0-9]+}", s.deleteItem).Methods(http.MethodDelete)

	return r
}

// --- service endpoints ---

type route struct {
	Methods string   `json:"methods"`
	URL     []string `json:"url"`
	Public  bool     `json:"public_access"`
}

var helpBody = struct {
	Message string           `json:"message"`
	Routes  map[string]route `json:"routes"`
}{
	Message: "Access the API with the urls below. Protected routes need the token from register or login as the Basic auth username.",
	Routes: map[string]route{
		"register":    {Methods: "POST", URL: []string{"/auth/register"}, Public: true},
		"login":       {Methods: "POST", URL: []string{"/auth/login"}, Public: true},
		"bucketlists": {Methods: "GET, POST, PUT, DELETE", URL: []string{"/bucketlists", "/bucketlists/{id}"}},
		"items":       {Methods: "GET, POST, PUT, DELETE", URL: []string{"/bucketlists/{id}/items", "/bucketlists/{id}/items/{item_id}"}},
	},
}

func (s *Server) help(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, helpBody)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			loggerFrom(r).Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, errorBody("unavailable"))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth ---

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in convert.Credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, tok, err := s.auth.Register(r.Context(), in.Username, in.Password)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			err = fmt.Errorf("%w: username %q is taken", errs.ErrAlreadyExists, strings.TrimSpace(in.Username))
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToToken(u, tok))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in convert.Credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, tok, err := s.auth.Login(r.Context(), in.Username, in.Password, remoteIP(r))
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrUnauthorized):
			s.metrics.authFailure("credentials")
			err = fmt.Errorf("%w: invalid username or password", errs.ErrUnauthorized)
		case errors.Is(err, errs.ErrRateLimited):
			s.metrics.authFailure("rate_limited")
			err = fmt.Errorf("%w: too many failed attempts, try again later", errs.ErrRateLimited)
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToToken(u, tok))
}

// --- bucketlists ---

func (s *Server) listBucketlists(w http.ResponseWriter, r *http.Request) {
	owner, ok := UserFromCtx(r.Context())
	if !ok {
		writeError(w, r, errs.ErrUnauthorized)
		return
	}
	q := r.URL.Query()
	search := strings.TrimSpace(q.Get("q"))
	page := s.paging.Parse(q.Get("page"), q.Get("limit"))

	res, err := s.lists.List(r.Context(), owner, search, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToBucketlistPage(res, baseURL(r), search))
}

func (s *Server) createBucketlist(w http.ResponseWriter, r *http.Request) {
	owner, ok := UserFromCtx(r.Context())
	if !ok {
		writeError(w, r, errs.ErrUnauthorized)
		return
	}
	var in convert.BucketlistInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	var name string
	if in.Name != nil {
		name = *in.Name
	}
	b, err := s.lists.Create(r.Context(), owner, name, in.IsPublic != nil && *in.IsPublic)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/bucketlists/%d", b.ID))
	writeJSON(w, http.StatusCreated, convert.ToBucketlist(*b))
}

func (s *Server) getBucketlist(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.target(w, r)
	if !ok {
		return
	}
	b, err := s.lists.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToBucketlist(*b))
}

func (s *Server) updateBucketlist(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.target(w, r)
	if !ok {
		return
	}
	var in convert.BucketlistInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.lists.Update(r.Context(), owner, id, in.Patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToBucketlist(*b))
}

func (s *Server) deleteBucketlist(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.target(w, r)
	if !ok {
		return
	}
	if err := s.lists.Delete(r.Context(), owner, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- items ---

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.target(w, r)
	if !ok {
		return
	}
	its, err := s.items.List(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]convert.Item{"items": convert.ToItems(its)})
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.target(w, r)
	if !ok {
		return
	}
	var in convert.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	var name string
	if in.Name != nil {
		name = *in.Name
	}
	it, err := s.items.Create(r.Context(), owner, id, name, in.Done != nil && *in.Done)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/bucketlists/%d/items/%d", id, it.ID))
	writeJSON(w, http.StatusCreated, convert.ToItem(*it))
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.target(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	var in convert.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	it, err := s.items.Update(r.Context(), owner, id, itemID, in.Patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToItem(*it))
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.target(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	if err := s.items.Delete(r.Context(), owner, id, itemID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

// target resolves the authenticated user and the bucketlist id from the path.
func (s *Server) target(w http.ResponseWriter, r *http.Request) (*model.User, int64, bool) {
	owner, ok := UserFromCtx(r.Context())
	if !ok {
		writeError(w, r, errs.ErrUnauthorized)
		return nil, 0, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, 0, false
	}
	return owner, id, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, errs.ErrNotFound)
		return 0, false
	}
	return id, true
}

// baseURL is the absolute URL of the current request without its query.
func baseURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return &url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path}
}
