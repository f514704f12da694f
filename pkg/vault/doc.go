// Package vault stores placeholder-to-original mappings per conversation
// session, with expiry.
//
// A Vault holds at most one SessionRecord per session id. Every write (Set,
// Merge) pushes the record's expiry to now+TTL. Reads past expiry remove the
// record and report it absent, and SweepExpired removes all expired records in
// bulk. A Sweeper runs that sweep on a cron schedule.
//
// The clock is injected through Config.Clock so tests can drive expiry with
// a FakeClock:
//
//	clock := vault.NewFakeClock(time.Now())
//	v := vault.New(vault.Config{TTL: time.Hour, Clock: clock})
//	v.Set("session-1", vault.Mapping{"[US_SSN_1a2b3c4d]": "123-45-6789"})
//	clock.Advance(2 * time.Hour)
//	_, ok := v.Get("session-1") // false, and the record is gone
//
// Mapping values are sensitive. Nothing in this package logs them.
package vault
