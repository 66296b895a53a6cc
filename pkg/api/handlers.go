package api

import (
	"errors"
	"net/http"

	"github.com/umuterturk/mcp-proto/pkg/catalog"
	"github.com/umuterturk/mcp-proto/pkg/httputil"
)

// Query parameter defaults, shared with the protocol tools.
const (
	defaultSearchLimit = 20
	defaultMinScore    = 60
	defaultMaxDepth    = 10
)

// search handles GET /v1/search
// Query parameters:
//   - q: search query (required)
//   - limit: max results (default: 20)
//   - min_score: minimum match score 0-100 (default: 60)
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := httputil.ParseQueryString(r, "q", "")
	if query == "" {
		httputil.WriteBadRequest(w, "missing query parameter 'q'")
		return
	}

	limit, err := httputil.ParseQueryInt(r, "limit", defaultSearchLimit)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	minScore, err := httputil.ParseQueryInt(r, "min_score", defaultMinScore)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	results := s.catalog.Search(r.Context(), query, limit, minScore)
	httputil.WriteSuccess(w, map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// getStats handles GET /v1/stats
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, s.catalog.GetStats())
}

// getService handles GET /v1/services/{name}
// Query parameters:
//   - resolve_types: expand request/response types (default: true)
//   - max_depth: resolution depth (default: 10)
func (s *Server) getService(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}
	resolveTypes, err := httputil.ParseQueryBool(r, "resolve_types", true)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	maxDepth, err := httputil.ParseQueryInt(r, "max_depth", defaultMaxDepth)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	service, err := s.catalog.GetService(r.Context(), name, resolveTypes, maxDepth)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	httputil.WriteSuccess(w, service)
}

// getMessage handles GET /v1/messages/{name}
func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}
	resolveTypes, err := httputil.ParseQueryBool(r, "resolve_types", true)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	maxDepth, err := httputil.ParseQueryInt(r, "max_depth", defaultMaxDepth)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	message, err := s.catalog.GetMessage(r.Context(), name, resolveTypes, maxDepth)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	httputil.WriteSuccess(w, message)
}

// getEnum handles GET /v1/enums/{name}
func (s *Server) getEnum(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	enum, err := s.catalog.GetEnum(r.Context(), name)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	httputil.WriteSuccess(w, enum)
}

// getTypeUsages handles GET /v1/types/{name}/usages
func (s *Server) getTypeUsages(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	usages, err := s.catalog.FindTypeUsages(r.Context(), name)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"type":   name,
		"count":  len(usages),
		"usages": usages,
	})
}

// listFiles handles GET /v1/files
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	files := s.catalog.Files()
	httputil.WriteSuccess(w, map[string]interface{}{
		"count": len(files),
		"files": files,
	})
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	var notFound *catalog.NotFoundError
	if errors.As(err, &notFound) {
		httputil.WriteNotFound(w, err.Error())
		return
	}
	httputil.WriteInternalError(w, err)
}
