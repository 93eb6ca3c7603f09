package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for refresh tokens at rest
	"encoding/hex"  // hex encoding of digests and random tokens
	"errors"        // sentinel verification errors
	"strconv"       // subject claim conversion
	"time"          // expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Verification failures are collapsed to two sentinels so callers can word
// user-facing messages without depending on jwt library error types.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// SignedToken is a serialized JWT along with its expiration time.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims is the decoded claim set carried by both access and refresh
// tokens: subject (user id), email, role and expiry.
type Claims struct {
	UserID uint64
	Email  string
	Role   string
	Exp    time.Time
}

// NewAccessToken builds and signs an HS256 JWT proving identity and role
// for a single request window.  Access tokens are short-lived and are sent
// in the Authorization header on protected endpoints.
func NewAccessToken(secret string, userID uint64, email, role string, ttl time.Duration) (SignedToken, error) {
	return signToken(secret, userID, email, role, ttl)
}

// NewRefreshToken builds and signs an HS256 JWT used solely to mint new
// access tokens.  It is signed with an independent secret so compromise of
// one signing key does not compromise the other.  Only the SHA-256 hash of
// the serialized token is persisted.
func NewRefreshToken(secret string, userID uint64, email, role string, ttl time.Duration) (SignedToken, error) {
	return signToken(secret, userID, email, role, ttl)
}

func signToken(secret string, userID uint64, email, role string, ttl time.Duration) (SignedToken, error) {
	exp := time.Now().UTC().Add(ttl)
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(userID, 10),
		"email": email,
		"role":  role,
		"exp":   exp.Unix(),
		"iat":   time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// ParseToken verifies signature and expiry and returns the decoded claims.
// Expiry is encoded inside the token, so verification is self-contained.
// A token presented at or after its expiry instant fails with
// ErrTokenExpired; any other defect fails with ErrTokenInvalid.
func ParseToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with a different algorithm.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenInvalid
	}
	var c Claims
	switch sub := mc["sub"].(type) {
	case string:
		id, err := strconv.ParseUint(sub, 10, 64)
		if err != nil {
			return Claims{}, ErrTokenInvalid
		}
		c.UserID = id
	case float64:
		// numeric subjects from older tokens decode as float64
		c.UserID = uint64(sub)
	default:
		return Claims{}, ErrTokenInvalid
	}
	c.Email, _ = mc["email"].(string)
	c.Role, _ = mc["role"].(string)
	if expVal, ok := mc["exp"].(float64); ok {
		c.Exp = time.Unix(int64(expVal), 0).UTC()
	}
	return c, nil
}

// HashTokenRaw returns the SHA-256 hash of a serialized token as a hex
// string.  Storing only the hash prevents attackers from using stolen
// database rows to refresh sessions.  The digest is deterministic, which
// also makes the compare-and-swap rotation update possible.
func HashTokenRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.  It is used to produce one-time
// verification and password-reset tokens.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
