package cookie

import (
	"net/http"
	"strings"
	"time"
)

// LegacyName is the cookie name used before names were scoped per
// environment. It is only ever cleared, never issued.
const LegacyName = "connect.sid"

// Policy decides the cookie name and attributes for one deployment.
type Policy struct {
	Prefix      string
	Environment string
	// KnownEnvironments lists every environment whose cookie a logout clears.
	KnownEnvironments []string
	MaxAge            time.Duration
	// TrustProxy honours X-Forwarded-Proto when deciding the Secure flag.
	TrustProxy bool
}

// Name returns "<prefix>-<environment>".
func (p Policy) Name() string {
	return nameFor(p.Prefix, p.Environment)
}

func nameFor(prefix, env string) string {
	return prefix + "-" + env
}

// Read returns the raw value of the current environment's cookie.
func (p Policy) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(p.Name())
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Secure reports whether cookies for r must carry the Secure attribute.
func (p Policy) Secure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if p.TrustProxy {
		proto := r.Header.Get("X-Forwarded-Proto")
		if i := strings.IndexByte(proto, ','); i >= 0 {
			proto = proto[:i]
		}
		return strings.EqualFold(strings.TrimSpace(proto), "https")
	}
	return false
}

// Issue sets the session cookie to value.
func (p Policy) Issue(w http.ResponseWriter, r *http.Request, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name(),
		Value:    value,
		Path:     "/",
		MaxAge:   int(p.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   p.Secure(r),
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearAll expires the cookie of every known environment, the current one
// and the legacy name.
func (p Policy) ClearAll(w http.ResponseWriter, r *http.Request) {
	secure := p.Secure(r)
	for _, name := range p.clearNames() {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func (p Policy) clearNames() []string {
	seen := make(map[string]struct{}, len(p.KnownEnvironments)+2)
	names := make([]string, 0, len(p.KnownEnvironments)+2)
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for _, env := range p.KnownEnvironments {
		add(nameFor(p.Prefix, env))
	}
	add(p.Name())
	add(LegacyName)
	return names
}
