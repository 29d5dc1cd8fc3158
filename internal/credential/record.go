// Package credential holds the fixed set of known users and answers
// credential lookups against it.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Record is a stored credential. The secret is kept only as a one-way hash.
type Record struct {
	Username   string
	SecretHash string
	CanUpload  bool
}

// Seed is a bootstrap credential with its secret in the clear. Seeds are
// hashed before they reach a Repository.
type Seed struct {
	Username  string
	Secret    string
	CanUpload bool
}

// MatchResult is the outcome of a lookup. Record is only meaningful when
// Matched is true.
type MatchResult struct {
	Matched bool
	Record  Record
}

// NotMatched is the result of a lookup that found no matching record.
var NotMatched = MatchResult{}

// Matched wraps a record into a successful MatchResult.
func Matched(r Record) MatchResult {
	return MatchResult{Matched: true, Record: r}
}

// ErrAlreadyExists is returned when inserting a username that is already stored.
var ErrAlreadyExists = errors.New("credential already exists")

// Repository persists credential records.
type Repository interface {
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
	// InsertAll stores all records atomically. It fails without side effects
	// if any username is already present.
	InsertAll(ctx context.Context, records []Record) error
	// List returns every stored record.
	List(ctx context.Context) ([]Record, error)
}

// DefaultSeeds is the bootstrap list used when SEED_USERS is not set.
var DefaultSeeds = []Seed{
	{Username: "admin", Secret: "admin123", CanUpload: true},
	{Username: "tamanna", Secret: "secure456", CanUpload: true},
	{Username: "guest", Secret: "guest123", CanUpload: false},
}

// ParseSeeds parses a comma separated "username:secret:can_upload" list.
// The can_upload field is optional and defaults to false.
func ParseSeeds(raw string) ([]Seed, error) {
	var seeds []Seed
	seen := make(map[string]struct{})

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid seed entry %q", entry)
		}

		s := Seed{Username: parts[0], Secret: parts[1]}
		if len(parts) == 3 {
			canUpload, err := strconv.ParseBool(parts[2])
			if err != nil {
				return nil, fmt.Errorf("invalid can_upload in seed entry %q: %w", entry, err)
			}
			s.CanUpload = canUpload
		}

		if _, dup := seen[s.Username]; dup {
			return nil, fmt.Errorf("duplicate seed username %q", s.Username)
		}
		seen[s.Username] = struct{}{}
		seeds = append(seeds, s)
	}

	return seeds, nil
}
