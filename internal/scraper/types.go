// Package scraper implements the HiBid crawl engine: page fetching, Apollo
// state extraction, reference resolution and the paginated crawl driver.
package scraper

import (
	"strings"
	"time"
)

// DefaultBaseURL is the HiBid host the search URLs are built against.
const DefaultBaseURL = "https://hibid.com"

// defaultUserAgent mirrors a desktop browser so requests are not rejected
// outright by the target.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

const (
	// DefaultPageSize is HiBid's items-per-page parameter.
	DefaultPageSize = 100

	// defaultPartialPageDivisor controls the trailing-page heuristic: a page
	// yielding fewer than PageSize/divisor raw lots is treated as the last
	// page of results. Undocumented upstream behavior; keep it overridable
	// through Config.PartialPageThreshold.
	defaultPartialPageDivisor = 2

	defaultFetchRetries = 3
	defaultBackoffStep  = 5 * time.Second
	defaultFetchTimeout = 30 * time.Second
)

// Config holds the settings for one scrape session. It is decoupled from
// Viper so the engine can be constructed and tested independently.
type Config struct {
	BaseURL     string
	UserAgent   string
	ZipCode     string
	RadiusMiles int
	Categories  []string

	TestMode  bool
	TestLimit int

	DelayMin time.Duration
	DelayMax time.Duration

	PageSize int
	// PartialPageThreshold ends a category once a page yields fewer raw lots
	// than this. Zero means PageSize / defaultPartialPageDivisor.
	PartialPageThreshold int

	FetchTimeout time.Duration
	FetchRetries int
	BackoffStep  time.Duration
}

// withDefaults fills zero values with the package defaults.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PartialPageThreshold <= 0 {
		c.PartialPageThreshold = c.PageSize / defaultPartialPageDivisor
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.FetchRetries <= 0 {
		c.FetchRetries = defaultFetchRetries
	}
	if c.BackoffStep <= 0 {
		c.BackoffStep = defaultBackoffStep
	}
	return c
}

// EntityKind classifies entries of the normalized cache. Unrecognized kinds
// are kept as KindUnknown rather than dropped so the resolver never loses
// payload data.
type EntityKind string

// Entity kinds observed in HiBid's Apollo cache.
const (
	KindAuction  EntityKind = "Auction"
	KindLot      EntityKind = "Lot"
	KindLotState EntityKind = "LotState"
	KindUnknown  EntityKind = "Unknown"
)

// EntityKey addresses one entity in a cache snapshot, e.g. "Lot:12345".
type EntityKey string

// TypeTag returns the portion of the key before the first colon.
func (k EntityKey) TypeTag() string {
	if i := strings.IndexByte(string(k), ':'); i >= 0 {
		return string(k)[:i]
	}
	return ""
}

// RawID returns the portion of the key after the first colon.
func (k EntityKey) RawID() string {
	if i := strings.IndexByte(string(k), ':'); i >= 0 {
		return string(k)[i+1:]
	}
	return ""
}

// Entity is one record of the normalized cache.
type Entity struct {
	Key    EntityKey
	Kind   EntityKind
	Fields map[string]any
}

// NormalizedCache is the flat keyed entity store embedded in a single page.
// It is rebuilt per fetch and never merged across pages.
type NormalizedCache map[EntityKey]Entity

// Lot is a hydrated auction item ready for persistence: the original cache
// fields plus inlined auction/lot-state data.
type Lot struct {
	ItemID string
	Fields map[string]any
}

// Item is what the driver emits to the caller, one record at a time.
type Item struct {
	ID       string
	Category string
	Payload  map[string]any
}

// ScrapeStats tracks counters for one session. Owned by a single Driver;
// the engine is sequential so no locking is needed.
type ScrapeStats struct {
	ItemsFound   int
	PagesScraped int
	Errors       int
}

// Apollo cache field names.
const (
	refField      = "__ref"
	typenameField = "__typename"

	auctionField  = "auction"
	lotStateField = "lotState"

	auctionDataField  = "auction_data"
	auctionRefField   = "auction_ref"
	lotStateDataField = "lot_state_data"
	lotStateRefField  = "lot_state_ref"
)

// refTarget reports whether v is a reference value ({"__ref": key}) and
// returns the key it points at.
func refTarget(v any) (EntityKey, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	ref, ok := m[refField].(string)
	if !ok || ref == "" {
		return "", false
	}
	return EntityKey(ref), true
}
