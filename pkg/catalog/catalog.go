// Package catalog maintains the in-memory index of parsed proto files and
// answers search, definition, and usage queries against it.
package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/umuterturk/mcp-proto/pkg/observability"
	"github.com/umuterturk/mcp-proto/pkg/schema"
	"github.com/umuterturk/mcp-proto/pkg/search"
)

var tracer = otel.Tracer("github.com/umuterturk/mcp-proto/pkg/catalog")

// NotFoundError reports a lookup for a definition the catalog does not hold.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// Stats summarizes the current catalog contents.
type Stats struct {
	TotalFiles             int `json:"total_files"`
	TotalServices          int `json:"total_services"`
	TotalMessages          int `json:"total_messages"`
	TotalEnums             int `json:"total_enums"`
	TotalSearchableEntries int `json:"total_searchable_entries"`
}

// Catalog is the in-memory definition index. One mutex guards the file
// records, the three definition maps, and the search entry list together,
// so every reader observes a consistent snapshot. Definitions are keyed by
// fully qualified name; when two files declare the same name the later
// indexed file wins the map slot, while search entries accumulate for both.
type Catalog struct {
	mu       sync.RWMutex
	files    map[string]*schema.File
	services map[string]*schema.Service
	messages map[string]*schema.Message
	enums    map[string]*schema.Enum
	entries  []search.Entry

	engine  *search.Engine
	cache   *resolutionCache
	logger  *observability.Logger
	metrics *observability.Metrics

	cacheEntries int
	cacheTTL     time.Duration
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithMetrics attaches Prometheus metrics to catalog operations.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Catalog) { c.metrics = m }
}

// WithCache overrides the resolution cache size and TTL.
func WithCache(maxEntries int, ttl time.Duration) Option {
	return func(c *Catalog) {
		c.cacheEntries = maxEntries
		c.cacheTTL = ttl
	}
}

// New creates an empty Catalog.
func New(logger *observability.Logger, opts ...Option) *Catalog {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	c := &Catalog{
		files:        make(map[string]*schema.File),
		services:     make(map[string]*schema.Service),
		messages:     make(map[string]*schema.Message),
		enums:        make(map[string]*schema.Enum),
		entries:      make([]search.Entry, 0),
		engine:       search.NewEngine(),
		logger:       logger,
		cacheEntries: defaultCacheEntries,
		cacheTTL:     defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = newResolutionCache(c.cacheEntries, c.cacheTTL, c.metrics)
	return c
}

// IndexDirectory walks rootPath for .proto files and indexes every one it
// can parse. Files are parsed in parallel; inserts serialize on the catalog
// lock. A file that fails to parse is logged and skipped, a walk failure
// aborts the whole operation. Returns the number of files indexed.
func (c *Catalog) IndexDirectory(ctx context.Context, rootPath string) (int, error) {
	ctx, span := tracer.Start(ctx, "catalog.IndexDirectory")
	defer span.End()
	span.SetAttributes(attribute.String("root", rootPath))

	start := time.Now()

	var paths []string
	err := filepath.Walk(rootPath, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() && filepath.Ext(path) == ".proto" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "walk failed")
		return 0, fmt.Errorf("failed to walk directory %s: %w", rootPath, err)
	}

	var indexed int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := c.indexFile(path); err != nil {
				c.logger.WithError(err).WithField("path", path).Error("failed to index file")
				if c.metrics != nil {
					c.metrics.FilesIndexedTotal.WithLabelValues("error").Inc()
					c.metrics.ParseErrorsTotal.Inc()
				}
				return nil
			}
			atomic.AddInt64(&indexed, 1)
			if c.metrics != nil {
				c.metrics.FilesIndexedTotal.WithLabelValues("ok").Inc()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return int(indexed), err
	}

	c.updateGauges()

	count := int(indexed)
	span.SetAttributes(attribute.Int("files", count))
	c.logger.WithFields(map[string]interface{}{
		"root":  rootPath,
		"count": count,
	}).Info("indexed proto files")
	if c.metrics != nil {
		c.metrics.IndexDuration.WithLabelValues("directory").Observe(time.Since(start).Seconds())
	}

	return count, nil
}

// IndexFile parses and indexes a single proto file, replacing any previous
// definitions from the same path.
func (c *Catalog) IndexFile(ctx context.Context, filePath string) error {
	_, span := tracer.Start(ctx, "catalog.IndexFile")
	defer span.End()
	span.SetAttributes(attribute.String("path", filePath))

	start := time.Now()
	if err := c.indexFile(filePath); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index failed")
		if c.metrics != nil {
			c.metrics.FilesIndexedTotal.WithLabelValues("error").Inc()
			c.metrics.ParseErrorsTotal.Inc()
		}
		return err
	}

	c.updateGauges()
	if c.metrics != nil {
		c.metrics.FilesIndexedTotal.WithLabelValues("ok").Inc()
		c.metrics.IndexDuration.WithLabelValues("file").Observe(time.Since(start).Seconds())
	}
	return nil
}

func (c *Catalog) indexFile(filePath string) error {
	parser := schema.NewParser()
	file, err := parser.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to parse file: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-indexing is remove-then-add: stale definitions and search entries
	// from the previous version of the file must not survive the rewrite.
	c.removeLocked(filePath)

	c.files[filePath] = file

	for i := range file.Services {
		service := &file.Services[i]
		c.services[service.FullName] = service
		c.entries = append(c.entries, search.Entry{
			FullName: service.FullName,
			Kind:     search.KindService,
			FilePath: filePath,
			Service:  service,
		})
	}

	for i := range file.Messages {
		message := &file.Messages[i]
		c.messages[message.FullName] = message
		c.entries = append(c.entries, search.Entry{
			FullName: message.FullName,
			Kind:     search.KindMessage,
			FilePath: filePath,
			Message:  message,
		})
	}

	for i := range file.Enums {
		enum := &file.Enums[i]
		c.enums[enum.FullName] = enum
		c.entries = append(c.entries, search.Entry{
			FullName: enum.FullName,
			Kind:     search.KindEnum,
			FilePath: filePath,
			Enum:     enum,
		})
	}

	// Purge before releasing the lock so no reader can cache a
	// pre-mutation result against the new catalog state.
	c.cache.Purge()

	c.logger.WithFields(map[string]interface{}{
		"path":     filePath,
		"services": len(file.Services),
		"messages": len(file.Messages),
		"enums":    len(file.Enums),
	}).Debug("indexed file")

	return nil
}

// RemoveFile drops a file and all definitions attributed to it. Removing an
// unknown path is a no-op.
func (c *Catalog) RemoveFile(ctx context.Context, filePath string) {
	_, span := tracer.Start(ctx, "catalog.RemoveFile")
	defer span.End()
	span.SetAttributes(attribute.String("path", filePath))

	c.mu.Lock()
	removed := c.removeLocked(filePath)
	if removed {
		c.cache.Purge()
	}
	c.mu.Unlock()

	if !removed {
		return
	}

	c.updateGauges()
	if c.metrics != nil {
		c.metrics.FilesRemovedTotal.Inc()
	}
	c.logger.WithField("path", filePath).Debug("removed file from index")
}

func (c *Catalog) removeLocked(filePath string) bool {
	file, exists := c.files[filePath]
	if !exists {
		return false
	}

	// Deletion is by fully qualified name. If another file declared the
	// same name and won the map slot, it loses the slot here too; that is
	// the same last-writer-wins tradeoff the insert path makes.
	for i := range file.Services {
		delete(c.services, file.Services[i].FullName)
	}
	for i := range file.Messages {
		delete(c.messages, file.Messages[i].FullName)
	}
	for i := range file.Enums {
		delete(c.enums, file.Enums[i].FullName)
	}

	kept := make([]search.Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		if entry.FilePath != filePath {
			kept = append(kept, entry)
		}
	}
	c.entries = kept

	delete(c.files, filePath)
	return true
}

// Search runs a fuzzy query over every indexed definition.
func (c *Catalog) Search(ctx context.Context, query string, limit, minScore int) []search.Result {
	_, span := tracer.Start(ctx, "catalog.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("query", query),
		attribute.Int("limit", limit),
		attribute.Int("min_score", minScore),
	)

	start := time.Now()

	c.mu.RLock()
	results := c.engine.Search(c.entries, query, limit, minScore)
	c.mu.RUnlock()

	span.SetAttributes(attribute.Int("results", len(results)))
	if c.metrics != nil {
		c.metrics.SearchesTotal.WithLabelValues("ok").Inc()
		c.metrics.SearchDuration.Observe(time.Since(start).Seconds())
		c.metrics.SearchResults.Observe(float64(len(results)))
	}
	return results
}

// GetStats reports the catalog contents under a read lock.
func (c *Catalog) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		TotalFiles:             len(c.files),
		TotalServices:          len(c.services),
		TotalMessages:          len(c.messages),
		TotalEnums:             len(c.enums),
		TotalSearchableEntries: len(c.entries),
	}
}

// Empty reports whether nothing has been indexed yet.
func (c *Catalog) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files) == 0
}

// Files returns the paths currently indexed, for rescan bookkeeping.
func (c *Catalog) Files() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	paths := make([]string, 0, len(c.files))
	for path := range c.files {
		paths = append(paths, path)
	}
	return paths
}

func (c *Catalog) updateGauges() {
	if c.metrics == nil {
		return
	}
	stats := c.GetStats()
	c.metrics.IndexedFiles.Set(float64(stats.TotalFiles))
	c.metrics.IndexedDefinitions.WithLabelValues("service").Set(float64(stats.TotalServices))
	c.metrics.IndexedDefinitions.WithLabelValues("message").Set(float64(stats.TotalMessages))
	c.metrics.IndexedDefinitions.WithLabelValues("enum").Set(float64(stats.TotalEnums))
}

// findFileForDefinition returns the path of the file declaring fullName.
// Linear over files; the caller must hold at least a read lock.
func (c *Catalog) findFileForDefinition(fullName, kind string) string {
	for filePath, file := range c.files {
		switch kind {
		case "service":
			for i := range file.Services {
				if file.Services[i].FullName == fullName {
					return filePath
				}
			}
		case "message":
			for i := range file.Messages {
				if file.Messages[i].FullName == fullName {
					return filePath
				}
			}
		case "enum":
			for i := range file.Enums {
				if file.Enums[i].FullName == fullName {
					return filePath
				}
			}
		}
	}
	return ""
}
