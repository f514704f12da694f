// Veil is a PII/PHI tokenization gateway for LLM prompts.
//
// It detects sensitive entities in a prompt, swaps them for session-scoped
// placeholders, forwards the de-identified prompt to a provider and puts the
// original values back into the reply.
//
// Usage:
//
//	# Start the gateway with defaults and VEIL_* environment overrides
//	veil run
//
//	# Start with a configuration file
//	veil run --config /etc/veil/config.yaml
//
//	# Show what would be detected in a piece of text
//	echo "call me at 555-123-4567" | veil detect
//
//	# Tokenize a file locally without calling a provider
//	veil redact --file notes.txt
//
//	# Check a configuration file
//	veil validate --config config.yaml
//
//	# Inspect the audit trail
//	veil evidence query --status error --since 24h
package main

import "os"

func main() {
	os.Exit(Execute())
}
