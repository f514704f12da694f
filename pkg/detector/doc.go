// Package detector defines the contract between the gateway and whatever
// locates sensitive spans in text.
//
// A Detector returns Spans with byte offsets into the analysed string. The
// gateway does not decide what counts as sensitive; it passes an entity
// allow-list (DefaultEntities unless configured) and trusts the detector's
// labels and scores.
//
// Implementations:
//   - pattern: regex recognizers loaded from YAML, hot-reloadable
//   - presidio: HTTP client for a Presidio analyzer service
//   - Chain: runs several detectors and concatenates their output
package detector
