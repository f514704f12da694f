// Package tls terminates HTTPS for the gateway.
//
// New turns a config.TLSConfig into a crypto/tls server configuration whose
// certificate comes from a Reloader. The Reloader watches the certificate
// file through pkg/watch and swaps in a renewed pair without a restart; a
// pair that fails to load or is outside its validity window is rejected and
// the old one keeps serving. Client certificate verification is enabled by
// setting ClientCAFile.
package tls
