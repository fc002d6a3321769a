package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer      Role = "customer"
	RoleAdmin         Role = "admin"
	RoleInternalAdmin Role = "internal_admin"
)

const internalAdminSubject = "ledger"

var (
	ErrInvalidCredential = errors.New("auth: invalid credential")
	ErrMisconfigured     = errors.New("auth: signing secret not configured")
)

// Principal is the resolved holder of a credential.
type Principal struct {
	Subject    string
	Role       Role
	CustomerID uuid.UUID
	FirstName  string
	LastName   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleInternalAdmin
}

func (p Principal) IsCustomer() bool {
	return p.Role == RoleCustomer && p.CustomerID != uuid.Nil
}

// InternalAdmin is the principal the ledger keeps for in-process calls. No
// token resolves to it.
func InternalAdmin() Principal {
	return Principal{Subject: internalAdminSubject, Role: RoleInternalAdmin}
}

type badgeClaims struct {
	Role      string `json:"role"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and resolves HS256 badges.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewIssuer(secret, issuer, audience string) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMisconfigured
	}
	return &Issuer{
		secret:   []byte(secret),
		issuer:   strings.TrimSpace(issuer),
		audience: strings.TrimSpace(audience),
		now:      time.Now,
	}, nil
}

// IssueCustomerBadge mints the identity credential handed out on registration.
func (i *Issuer) IssueCustomerBadge(id uuid.UUID, reg domain.Registration) (string, error) {
	return i.sign(badgeClaims{
		Role:             string(RoleCustomer),
		FirstName:        reg.FirstName,
		LastName:         reg.LastName,
		RegisteredClaims: i.registered(id.String()),
	})
}

func (i *Issuer) IssueAdminBadge() (string, error) {
	return i.sign(badgeClaims{
		Role:             string(RoleAdmin),
		RegisteredClaims: i.registered(uuid.NewString()),
	})
}

func (i *Issuer) registered(subject string) jwt.RegisteredClaims {
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(i.now()),
		ID:       uuid.NewString(),
	}
	if i.issuer != "" {
		claims.Issuer = i.issuer
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}
	return claims
}

func (i *Issuer) sign(claims badgeClaims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign badge: %w", err)
	}
	return token, nil
}

// Resolve parses a badge back into its principal.
func (i *Issuer) Resolve(token string) (Principal, error) {
	claims := &badgeClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	if i.audience != "" {
		opts = append(opts, jwt.WithAudience(i.audience))
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return i.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	switch Role(claims.Role) {
	case RoleCustomer:
		id, err := uuid.Parse(claims.Subject)
		if err != nil {
			return Principal{}, fmt.Errorf("%w: customer subject %q", ErrInvalidCredential, claims.Subject)
		}
		return Principal{
			Subject:    claims.Subject,
			Role:       RoleCustomer,
			CustomerID: id,
			FirstName:  claims.FirstName,
			LastName:   claims.LastName,
		}, nil
	case RoleAdmin:
		return Principal{Subject: claims.Subject, Role: RoleAdmin}, nil
	default:
		return Principal{}, fmt.Errorf("%w: role %q", ErrInvalidCredential, claims.Role)
	}
}
