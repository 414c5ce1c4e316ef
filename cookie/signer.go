package cookie

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCookie is returned for any cookie value that does not verify.
var ErrInvalidCookie = errors.New("invalid session cookie")

const minSecretSize = 16

// MaxLeeway bounds SignerConfig.Leeway.
const MaxLeeway = 2 * time.Minute

// SignerConfig configures a Signer.
type SignerConfig struct {
	// Secret is the HMAC key new values are signed with.
	Secret []byte
	// Issuer is bound into every value, normally the cookie name.
	Issuer string
	// TTL bounds the lifetime of a signed value. Zero disables the exp claim.
	TTL time.Duration
	// Leeway tolerates clock skew between instances sharing a secret when
	// checking iat and exp. At most MaxLeeway.
	Leeway time.Duration
	// KeyID labels Secret in the token header when secrets are rotated.
	KeyID string
	// VerifyKeys holds retired secrets by key id that are still accepted.
	VerifyKeys map[string][]byte
}

// Signer produces and verifies signed session cookie values.
type Signer struct {
	config SignerConfig
}

type sessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewSigner validates cfg and returns a Signer.
func NewSigner(cfg SignerConfig) (*Signer, error) {
	if len(cfg.Secret) < minSecretSize {
		return nil, fmt.Errorf("cookie secret must be at least %d bytes", minSecretSize)
	}
	if cfg.TTL < 0 {
		return nil, errors.New("invalid cookie TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > MaxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if len(key) < minSecretSize {
			return nil, fmt.Errorf("verify key %q is shorter than %d bytes", kid, minSecretSize)
		}
	}
	if len(cfg.VerifyKeys) > 0 && cfg.KeyID == "" {
		return nil, errors.New("KeyID is required when VerifyKeys are set")
	}
	return &Signer{config: cfg}, nil
}

// Sign returns the cookie value for sid.
func (s *Signer) Sign(sid string) (string, error) {
	if sid == "" {
		return "", errors.New("empty session id")
	}

	now := time.Now()
	claims := sessionClaims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   s.config.Issuer,
		},
	}
	if s.config.TTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.config.TTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if s.config.KeyID != "" {
		token.Header["kid"] = s.config.KeyID
	}
	return token.SignedString(s.config.Secret)
}

// Verify returns the session id carried by value. Every failure is reported
// as ErrInvalidCookie with the cause attached.
func (s *Signer) Verify(value string) (string, error) {
	if value == "" {
		return "", ErrInvalidCookie
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(value, &sessionClaims{}, s.keyFor)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.SID == "" {
		return "", ErrInvalidCookie
	}
	return claims.SID, nil
}

func (s *Signer) keyFor(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	if s.config.KeyID == "" {
		return s.config.Secret, nil
	}

	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("missing kid")
	}
	if kid == s.config.KeyID {
		return s.config.Secret, nil
	}
	if key, ok := s.config.VerifyKeys[kid]; ok {
		return key, nil
	}
	return nil, errors.New("unknown kid")
}
