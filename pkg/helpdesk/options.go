package helpdesk

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/deskkit/pkg/credstore"
)

const (
	DefaultDetailCacheSize = 64
	DefaultDetailTTL       = 5 * time.Minute
)

type options struct {
	store       credstore.Store
	logger      *slog.Logger
	httpClient  *http.Client
	timeout     time.Duration
	pageSize    int
	cacheSize   int
	cacheTTL    time.Duration
	userAgent   string
	validateTTL time.Duration
}

type Option func(*options)

// WithStore sets where the credential and cached identity persist. Defaults to memory.
func WithStore(s credstore.Store) Option {
	return func(o *options) { o.store = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// WithDetailCache bounds the ticket detail projections kept in memory.
func WithDetailCache(size int, ttl time.Duration) Option {
	return func(o *options) {
		o.cacheSize = size
		o.cacheTTL = ttl
	}
}

func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithValidationTimeout bounds the background identity check started by Boot.
func WithValidationTimeout(d time.Duration) Option {
	return func(o *options) { o.validateTTL = d }
}
