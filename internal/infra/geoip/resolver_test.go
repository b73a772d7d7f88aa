package geoip

import (
	"errors"
	"net"
	"testing"

	"github.com/oschwald/geoip2-golang"
)

type fakeDB struct {
	codes  map[string]string
	calls  int
	closed bool
}

func (f *fakeDB) Country(ip []byte) (*geoip2.Country, error) {
	f.calls++
	code, ok := f.codes[net.IP(ip).String()]
	if !ok {
		return nil, errors.New("not found")
	}
	rec := &geoip2.Country{}
	rec.Country.IsoCode = code
	return rec, nil
}

func (f *fakeDB) Close() error {
	f.closed = true
	return nil
}

func TestCountryCode(t *testing.T) {
	db := &fakeDB{codes: map[string]string{"81.2.69.142": "GB"}}
	r := newResolver(db)

	for i := 0; i < 2; i++ {
		code, err := r.CountryCode(" 81.2.69.142 ")
		if err != nil || code != "GB" {
			t.Fatalf("CountryCode = %q, %v", code, err)
		}
	}
	if db.calls != 1 {
		t.Fatalf("expected one database lookup, got %d", db.calls)
	}

	// IPv4-mapped IPv6 resolves like the plain address.
	if code, _ := r.CountryCode("::ffff:81.2.69.142"); code != "GB" {
		t.Fatalf("mapped address = %q", code)
	}

	if _, err := r.CountryCode("8.8.8.8"); err == nil {
		t.Fatal("expected lookup error")
	}
	if _, err := r.CountryCode("not-an-ip"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCountryCodeSkipsLocalAddresses(t *testing.T) {
	db := &fakeDB{}
	r := newResolver(db)
	for _, ip := range []string{"127.0.0.1", "10.1.2.3", "192.168.0.10", "::1", "fe80::1", "0.0.0.0"} {
		code, err := r.CountryCode(ip)
		if err != nil || code != "" {
			t.Fatalf("CountryCode(%s) = %q, %v", ip, code, err)
		}
	}
	if db.calls != 0 {
		t.Fatalf("local addresses reached the database %d times", db.calls)
	}
}

func TestNilResolver(t *testing.T) {
	r, err := NewResolver("  ")
	if err != nil || r != nil {
		t.Fatalf("NewResolver(empty) = %v, %v", r, err)
	}
	if r.Lookup() != nil {
		t.Fatal("nil resolver should yield a nil lookup")
	}
	if _, err := r.CountryCode("81.2.69.142"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCloseClosesDatabase(t *testing.T) {
	db := &fakeDB{}
	if err := newResolver(db).Close(); err != nil || !db.closed {
		t.Fatalf("Close = %v, closed=%v", err, db.closed)
	}
}
