package identity

import (
	"context"
	"strings"
)

// MatchSource records which kind of phone mapping identified the user.
type MatchSource string

const (
	MatchPrimary   MatchSource = "primary"
	MatchSecondary MatchSource = "secondary"
)

// UserIdentity is the account that owns an inbound phone number.
type UserIdentity struct {
	UserID       int64       `json:"user_id"`
	Email        string      `json:"email"`
	FullName     string      `json:"full_name"`
	IsActive     bool        `json:"is_active"`
	MatchedPhone string      `json:"matched_phone"`
	MatchSource  MatchSource `json:"match_source"`
}

// FirstName returns the first word of FullName, or "" when unknown.
func (u *UserIdentity) FirstName() string {
	if u == nil {
		return ""
	}
	fields := strings.Fields(u.FullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// PhoneMatch is one row of the backing store's read contract.
type PhoneMatch struct {
	UserID     int64  `yaml:"user_id"`
	Email      string `yaml:"email"`
	FullName   string `yaml:"full_name"`
	IsActive   bool   `yaml:"is_active"`
	Phone      string `yaml:"phone"`
	IsPrimary  bool   `yaml:"is_primary"`
	IsVerified bool   `yaml:"is_verified"`
}

// Store is the read-only source of truth for phone ownership.
type Store interface {
	// LookupPhone returns every mapping for a normalized E.164 number.
	LookupPhone(ctx context.Context, phone string) ([]PhoneMatch, error)
	Ping(ctx context.Context) error
}
