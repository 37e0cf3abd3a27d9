// Package inspect exposes a read-mostly HTTP view of a service container.
//
// Routes, relative to the prefix they are mounted under:
//
//	GET  /services               every known id, optionally ?resolved=true|false
//	GET  /services/{id}          whether id is registered or resolved, and its type once built
//	POST /services/{id}/resolve  resolve id now and report the type or the failure
//
// Ids containing "/" (type keys) must be path-escaped by the client.
package inspect

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-container/framework/container"
	gohttp "github.com/km-arc/go-container/framework/http"
	"github.com/km-arc/go-container/framework/http/validation"
	"github.com/km-arc/go-container/framework/routing"
)

// Service describes one container id.
type Service struct {
	ID       string `json:"id"`
	Has      bool   `json:"has"`
	Resolved bool   `json:"resolved"`
	Type     string `json:"type,omitempty"`
}

// Failure is the body of a failed resolve.
type Failure struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// Handler serves the inspector routes for one container.
type Handler struct {
	c   *container.Container
	log *zap.Logger

	// resolving serializes Get calls that may build values; the container
	// resolves on one goroutine at a time.
	resolving sync.Mutex
}

// New creates a Handler. A nil logger is replaced by a no-op one.
func New(c *container.Container, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{c: c, log: log.Named("inspect")}
}

// Routes registers the inspector endpoints on r.
//
//	router.Prefix("/_container", inspect.New(c, logger).Routes)
func (h *Handler) Routes(r *routing.Router) {
	r.Get("/services", h.List)
	r.Get("/services/{id}", h.Show)
	r.Post("/services/{id}/resolve", h.Resolve)
}

// List handles GET /services.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	filter := r.URL.Query().Get("resolved")

	v := validation.Make(map[string]string{"resolved": filter}, validation.Rules{
		"resolved": "sometimes|boolean",
	})
	if v.Fails() {
		res.ValidationError(v.Errors())
		return
	}

	services := make([]Service, 0)
	for _, id := range h.c.IDs() {
		s := h.describe(id)
		if filter != "" {
			want, _ := strconv.ParseBool(filter)
			if s.Resolved != want {
				continue
			}
		}
		services = append(services, s)
	}
	res.Success(services)
}

// Show handles GET /services/{id}. It never triggers resolution.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	id, ok := h.id(res, r)
	if !ok {
		return
	}

	s := h.describe(id)
	if !s.Has && !s.Resolved {
		res.NotFound(fmt.Sprintf("Service %q is not known to the container.", id))
		return
	}
	res.Success(s)
}

// Resolve handles POST /services/{id}/resolve.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	id, ok := h.id(res, r)
	if !ok {
		return
	}

	h.resolving.Lock()
	_, err := h.c.Get(id)
	h.resolving.Unlock()
	if err != nil {
		kind := Kind(err)
		h.log.Warn("resolve failed", zap.String("id", id), zap.String("kind", kind), zap.Error(err))

		status := http.StatusInternalServerError
		if kind == "not_found" {
			status = http.StatusNotFound
		}
		res.JSON(status, map[string]any{"error": Failure{ID: id, Kind: kind, Error: err.Error()}})
		return
	}
	res.Success(h.describe(id))
}

// Kind names the outermost container error in err, or "unknown".
func Kind(err error) string {
	switch container.Classify(err) {
	case container.ErrNotFound:
		return "not_found"
	case container.ErrCreation:
		return "creation"
	case container.ErrInvalidDefinition:
		return "invalid_definition"
	case container.ErrCyclicDependency:
		return "cyclic_dependency"
	case container.ErrDuplicateRegistration:
		return "duplicate_registration"
	default:
		return "unknown"
	}
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (h *Handler) describe(id string) Service {
	s := Service{ID: id, Has: h.c.Has(id), Resolved: h.c.Resolved(id)}
	if s.Resolved {
		// Cached values are returned without running anything.
		if v, err := h.c.Get(id); err == nil {
			s.Type = fmt.Sprintf("%T", v)
		}
	}
	return s
}

// id reads and validates the {id} route param, writing the error response
// itself when it is unusable.
func (h *Handler) id(res *gohttp.Response, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(routing.Param(r, "id"))
	if err != nil {
		res.Error(http.StatusBadRequest, "Malformed service id.")
		return "", false
	}

	v := validation.Make(map[string]string{"id": id}, validation.Rules{
		"id": `required|max:512|not_regex:\s`,
	})
	if v.Fails() {
		res.ValidationError(v.Errors())
		return "", false
	}
	return id, true
}
