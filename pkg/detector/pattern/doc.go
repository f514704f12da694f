// Package pattern is a regex-based detector.
//
// Recognizers are declared in YAML: an entity label, optional context words
// that raise the score when they appear shortly before a match, an optional
// validator ("luhn", "iban") and one or more scored patterns. The embedded
// recognizers.yaml covers US SSNs, medical record numbers, ages, phone
// numbers, emails, payment cards, IP addresses, URLs, passports, IBANs,
// dates and driver licenses.
//
// Rules may be replaced at runtime with Load or LoadFile, or kept in sync
// with a file on disk through Watch.
package pattern
