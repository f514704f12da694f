package vault

import (
	"hash/fnv"
	"maps"
	"slices"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long a session's mapping lives after its last write.
	DefaultTTL = 24 * time.Hour

	// DefaultShards is the number of independently locked buckets.
	DefaultShards = 32
)

// Mapping maps a placeholder to the original text it replaced.
type Mapping map[string]string

// Clone returns a shallow copy of m. A nil mapping clones to nil.
func (m Mapping) Clone() Mapping {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// SessionRecord is a session's mapping and its expiry.
type SessionRecord struct {
	SessionID string
	Mapping   Mapping
	ExpiresAt time.Time
}

// Config configures a Vault.
type Config struct {
	// TTL is the lifetime of a session record from its last write.
	// Default: 24h
	TTL time.Duration

	// Shards is the number of lock buckets. Values below 1 use DefaultShards.
	Shards int

	// Clock overrides the time source. Default: SystemClock.
	Clock Clock
}

// Stats is a point-in-time view of vault occupancy.
type Stats struct {
	Sessions int
	Entries  int
}

// Vault is a concurrency-safe, expiring store of per-session token mappings.
//
// Records are spread over a fixed set of shards keyed by an FNV-1a hash of
// the session id. Every operation on a session runs under its shard's lock,
// so check-and-act sequences are atomic. Mapping values are never logged.
type Vault struct {
	shards []*shard
	ttl    time.Duration
	clock  Clock
}

type shard struct {
	mu      sync.Mutex
	records map[string]*SessionRecord
}

// New creates a Vault from cfg, applying defaults for zero values.
func New(cfg Config) *Vault {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Shards < 1 {
		cfg.Shards = DefaultShards
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}

	v := &Vault{
		shards: make([]*shard, cfg.Shards),
		ttl:    cfg.TTL,
		clock:  cfg.Clock,
	}
	for i := range v.shards {
		v.shards[i] = &shard{records: make(map[string]*SessionRecord)}
	}
	return v
}

// TTL returns the configured record lifetime.
func (v *Vault) TTL() time.Duration {
	return v.ttl
}

func (v *Vault) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return v.shards[h.Sum32()%uint32(len(v.shards))]
}

// Get returns a copy of the session's mapping. An expired record is removed
// and reported as absent.
func (v *Vault) Get(sessionID string) (Mapping, bool) {
	s := v.shardFor(sessionID)
	now := v.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return nil, false
	}
	if !now.Before(rec.ExpiresAt) {
		delete(s.records, sessionID)
		return nil, false
	}
	return rec.Mapping.Clone(), true
}

// Set creates or replaces the session's mapping and resets its expiry.
func (v *Vault) Set(sessionID string, mapping Mapping) {
	s := v.shardFor(sessionID)
	now := v.clock.Now()

	m := mapping.Clone()
	if m == nil {
		m = make(Mapping)
	}

	s.mu.Lock()
	s.records[sessionID] = &SessionRecord{
		SessionID: sessionID,
		Mapping:   m,
		ExpiresAt: now.Add(v.ttl),
	}
	s.mu.Unlock()
}

// Merge unions mapping into the session's existing mapping, with new entries
// winning on key collision, and refreshes the expiry. A missing or expired
// record is replaced as if by Set. The post-merge mapping is returned.
func (v *Vault) Merge(sessionID string, mapping Mapping) Mapping {
	s := v.shardFor(sessionID)
	now := v.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.merge(sessionID, mapping, now, v.ttl)
}

// MergeNew is Merge for callers that must not overwrite: if any key of
// mapping is already live in the session, nothing changes and the current
// mapping is returned with the clashing keys, sorted. Otherwise it merges
// and returns the post-merge mapping and nil.
func (v *Vault) MergeNew(sessionID string, mapping Mapping) (Mapping, []string) {
	s := v.shardFor(sessionID)
	now := v.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[sessionID]; ok && now.Before(rec.ExpiresAt) {
		var clash []string
		for k := range mapping {
			if _, taken := rec.Mapping[k]; taken {
				clash = append(clash, k)
			}
		}
		if len(clash) > 0 {
			slices.Sort(clash)
			return rec.Mapping.Clone(), clash
		}
	}
	return s.merge(sessionID, mapping, now, v.ttl), nil
}

// merge unions mapping into the live record, replacing an expired one.
// The caller holds s.mu.
func (s *shard) merge(sessionID string, mapping Mapping, now time.Time, ttl time.Duration) Mapping {
	rec, ok := s.records[sessionID]
	if !ok || !now.Before(rec.ExpiresAt) {
		rec = &SessionRecord{SessionID: sessionID, Mapping: make(Mapping, len(mapping))}
		s.records[sessionID] = rec
	}
	maps.Copy(rec.Mapping, mapping)
	rec.ExpiresAt = now.Add(ttl)

	return rec.Mapping.Clone()
}

// Delete removes the session and reports whether a record was present.
func (v *Vault) Delete(sessionID string) bool {
	s := v.shardFor(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[sessionID]
	delete(s.records, sessionID)
	return ok
}

// SweepExpired removes every record whose expiry is at or before now and
// returns how many were removed. Shards are locked one at a time.
func (v *Vault) SweepExpired() int {
	now := v.clock.Now()
	removed := 0

	for _, s := range v.shards {
		s.mu.Lock()
		for id, rec := range s.records {
			if !now.Before(rec.ExpiresAt) {
				delete(s.records, id)
				removed++
			}
		}
		s.mu.Unlock()
	}

	return removed
}

// Len returns the number of stored session records, expired or not.
func (v *Vault) Len() int {
	return v.Stats().Sessions
}

// Stats counts sessions and mapping entries across all shards.
func (v *Vault) Stats() Stats {
	var st Stats
	for _, s := range v.shards {
		s.mu.Lock()
		st.Sessions += len(s.records)
		for _, rec := range s.records {
			st.Entries += len(rec.Mapping)
		}
		s.mu.Unlock()
	}
	return st
}
