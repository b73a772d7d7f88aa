package geoip

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when no database is loaded.
var ErrUnavailable = errors.New("geoip resolver unavailable")

// maxCached bounds the lookup cache; it is reset once full.
const maxCached = 4096

type countryReader interface {
	Country(ip []byte) (*geoip2.Country, error)
	Close() error
}

// Resolver maps client addresses to ISO country codes using a MaxMind
// GeoIP2 or GeoLite2 country database.
type Resolver struct {
	db countryReader

	mu    sync.Mutex
	cache map[netip.Addr]string
}

// NewResolver opens the database at path. An empty path yields a nil resolver
// and no error; locale detection then relies on headers only.
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return newResolver(geoipReader{reader}), nil
}

func newResolver(db countryReader) *Resolver {
	return &Resolver{db: db, cache: make(map[netip.Addr]string)}
}

// CountryCode returns the ISO country code for ip. Addresses that cannot be
// routed publicly resolve to "" without touching the database.
func (r *Resolver) CountryCode(ip string) (string, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return "", nil
	}
	if r == nil || r.db == nil {
		return "", ErrUnavailable
	}

	r.mu.Lock()
	code, ok := r.cache[addr]
	r.mu.Unlock()
	if ok {
		return code, nil
	}

	record, err := r.db.Country(addr.AsSlice())
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	if record != nil {
		code = record.Country.IsoCode
	}

	r.mu.Lock()
	if len(r.cache) >= maxCached {
		clear(r.cache)
	}
	r.cache[addr] = code
	r.mu.Unlock()
	return code, nil
}

// Lookup adapts the resolver to the middleware's lookup func. A nil resolver
// yields a nil func.
func (r *Resolver) Lookup() func(ip string) (string, error) {
	if r == nil {
		return nil
	}
	return r.CountryCode
}

// Close closes the database.
func (r *Resolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// geoipReader narrows *geoip2.Reader to a byte-slice address.
type geoipReader struct {
	*geoip2.Reader
}

func (g geoipReader) Country(ip []byte) (*geoip2.Country, error) {
	return g.Reader.Country(ip)
}
