// Package cache provides pluggable byte caching for tracker API
// snapshots and derived report artifacts.
//
// Three backends are provided: a file cache for CLI usage, a Redis cache
// for shared deployments, and a null cache that disables caching. All
// backends store opaque byte slices with an optional TTL; key structure
// is the caller's concern, helped by [Keyer].
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface shared by all backends.
//
// Get returns (data, true, nil) on a hit and (nil, false, nil) on a
// miss; expired entries count as misses. Implementations must be safe
// for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer builds structured cache keys so that the different artifact
// kinds (raw HTTP snapshots, computed report documents) never collide.
type Keyer interface {
	// HTTPKey keys a raw API response. The namespace identifies the
	// source ("bugzilla:", "amo:"), the key the request within it.
	HTTPKey(namespace, key string) string

	// SnapshotKey keys a full fetched snapshot for one source and query.
	SnapshotKey(source string, opts SnapshotKeyOpts) string

	// ReportKey keys a computed report document derived from a snapshot.
	ReportKey(snapshotHash string, opts ReportKeyOpts) string
}

// SnapshotKeyOpts captures the query parameters that make two snapshots
// distinct.
type SnapshotKeyOpts struct {
	Query  string
	Fields []string
}

// ReportKeyOpts captures the report parameters that make two derived
// documents distinct.
type ReportKeyOpts struct {
	Granularity string
	Sections    []string
}

// DefaultKeyer is the standard Keyer implementation. Option structs are
// hashed into the key so that any parameter change produces a new key.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// HTTPKey generates a key for HTTP response caching.
func (k *DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// SnapshotKey generates a key for a fetched source snapshot.
func (k *DefaultKeyer) SnapshotKey(source string, opts SnapshotKeyOpts) string {
	return hashKey("snapshot:"+source, opts.Query, opts.Fields)
}

// ReportKey generates a key for a computed report document.
func (k *DefaultKeyer) ReportKey(snapshotHash string, opts ReportKeyOpts) string {
	return hashKey("report:"+snapshotHash, opts.Granularity, opts.Sections)
}
