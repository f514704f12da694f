// Package tokenize swaps sensitive spans for opaque placeholders and back.
//
// A placeholder looks like "[US_SSN_3f9a0c1d]": the entity label followed by
// eight hex characters. Every redacted occurrence gets a fresh placeholder,
// even when the same value was seen earlier in the session, so a session's
// mapping grows by one entry per redacted occurrence.
//
// Tokenize validates spans, drops overlaps, applies the age policy and
// splices placeholders from the last span to the first so earlier offsets
// stay valid. New placeholders are merged into the session's vault record.
// Detokenize is the pure inverse: given the session mapping it restores the
// original values, longest placeholder first.
package tokenize
