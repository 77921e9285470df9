package docapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docstack/veristack/internal/search"
)

// Store is the slice of the search client the API needs.
type Store interface {
	Ping(ctx context.Context) error
	Index(ctx context.Context, doc search.Document) (string, error)
	SearchByAUID(ctx context.Context, auid string) ([]search.Hit, error)
}

// Router exposes the document storage API:
//
//	GET {basePath}/healthz    readiness of the API and its search backend
//	GET {basePath}/storedata  query: text=...&auid=...&additional_args={json}
//	GET {basePath}/getdata    query: auid=...
//
// Store/get use GET with query parameters to stay wire-compatible with the
// harness probes and any existing callers of the original service.
type Router struct {
	store    Store
	logger   *slog.Logger
	basePath string
}

func NewRouter(store Store, lg *slog.Logger, basePath string) *Router {
	if lg == nil {
		lg = slog.Default()
	}
	return &Router{store: store, logger: lg, basePath: basePath}
}

// Handler returns an http.Handler powered by gin that can be mounted in any mux.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/healthz", r.handleHealthz)
	group.GET("/storedata", r.handleStore)
	group.GET("/getdata", r.handleGet)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr string, store Store, lg *slog.Logger) *http.Server {
	r := NewRouter(store, lg, "")
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

type errorResp struct {
	Error string `json:"error"`
}

type storeResp struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

type docResp struct {
	Text           string         `json:"text"`
	AUID           string         `json:"auid"`
	AdditionalArgs map[string]any `json:"additional_args,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	DocumentID     string         `json:"document_id"`
}

type getResp struct {
	Status    string    `json:"status"`
	Count     int       `json:"count"`
	Documents []docResp `json:"documents"`
}

func (r *Router) handleHealthz(c *gin.Context) {
	if err := r.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResp{Error: "search backend unavailable: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) handleStore(c *gin.Context) {
	text := c.Query("text")
	auid := c.Query("auid")
	if text == "" || auid == "" {
		c.JSON(http.StatusBadRequest, errorResp{Error: "text and auid query params required"})
		return
	}
	var extra map[string]any
	if raw := c.Query("additional_args"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &extra); err != nil {
			c.JSON(http.StatusBadRequest, errorResp{Error: "invalid additional_args JSON: " + err.Error()})
			return
		}
	}

	doc := search.Document{
		Text:           text,
		AUID:           auid,
		AdditionalArgs: extra,
		Timestamp:      time.Now().UTC(),
	}
	id, err := r.store.Index(c.Request.Context(), doc)
	if err != nil {
		r.logger.Error("store failed", "auid", auid, "error", err)
		c.JSON(http.StatusInternalServerError, errorResp{Error: "error storing data: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, storeResp{
		Status:     "success",
		Message:    "Data stored successfully",
		DocumentID: id,
	})
}

func (r *Router) handleGet(c *gin.Context) {
	auid := c.Query("auid")
	if auid == "" {
		c.JSON(http.StatusBadRequest, errorResp{Error: "auid query param required"})
		return
	}
	hits, err := r.store.SearchByAUID(c.Request.Context(), auid)
	if err != nil {
		r.logger.Error("get failed", "auid", auid, "error", err)
		c.JSON(http.StatusInternalServerError, errorResp{Error: "error retrieving data: " + err.Error()})
		return
	}
	docs := make([]docResp, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, docResp{
			Text:           h.Source.Text,
			AUID:           h.Source.AUID,
			AdditionalArgs: h.Source.AdditionalArgs,
			Timestamp:      h.Source.Timestamp,
			DocumentID:     h.ID,
		})
	}
	c.JSON(http.StatusOK, getResp{Status: "success", Count: len(docs), Documents: docs})
}
