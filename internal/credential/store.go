package credential

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Store answers credential lookups from a snapshot taken after seeding. It is
// read-only and safe for concurrent use.
type Store struct {
	hasher  *Hasher
	records map[string]Record

	// decoy is verified against when the username is unknown so both miss
	// paths cost one hash derivation.
	decoy string
}

// Open seeds repo with seeds unless it already holds records, then loads
// every record into a new Store. Lookups are only possible through the
// returned Store, so they never observe a half-seeded repository.
func Open(ctx context.Context, repo Repository, hasher *Hasher, seeds []Seed) (*Store, error) {
	if err := seed(ctx, repo, hasher, seeds); err != nil {
		return nil, err
	}

	list, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	decoy, err := hasher.Hash("")
	if err != nil {
		return nil, fmt.Errorf("hash decoy: %w", err)
	}

	s := &Store{
		hasher:  hasher,
		records: make(map[string]Record, len(list)),
		decoy:   decoy,
	}
	for _, rec := range list {
		s.records[rec.Username] = rec
	}

	log.WithField("records", len(s.records)).Info("credential store ready")
	return s, nil
}

func seed(ctx context.Context, repo Repository, hasher *Hasher, seeds []Seed) error {
	n, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count credentials: %w", err)
	}
	if n > 0 {
		log.WithField("records", n).Debug("credential store already seeded")
		return nil
	}

	records := make([]Record, 0, len(seeds))
	for _, s := range seeds {
		if s.Username == "" {
			return errors.New("seed username must not be empty")
		}
		hash, err := hasher.Hash(s.Secret)
		if err != nil {
			return fmt.Errorf("hash secret for %q: %w", s.Username, err)
		}
		records = append(records, Record{Username: s.Username, SecretHash: hash, CanUpload: s.CanUpload})
	}

	// A concurrent instance may have seeded between Count and InsertAll.
	if err := repo.InsertAll(ctx, records); err != nil && !errors.Is(err, ErrAlreadyExists) {
		return fmt.Errorf("seed credentials: %w", err)
	}
	return nil
}

// Lookup returns Matched when a record with exactly username exists and
// secret verifies against its hash. It never fails: a corrupt stored hash is
// logged and treated as a mismatch.
func (s *Store) Lookup(username, secret string) MatchResult {
	rec, ok := s.records[username]
	if !ok {
		_, _ = s.hasher.Verify(secret, s.decoy)
		return NotMatched
	}

	match, err := s.hasher.Verify(secret, rec.SecretHash)
	if err != nil {
		log.WithError(err).WithField("username", username).Error("stored secret hash is unreadable")
		return NotMatched
	}
	if !match {
		return NotMatched
	}
	return Matched(rec)
}

// Len returns the number of records held by the store.
func (s *Store) Len() int {
	return len(s.records)
}
