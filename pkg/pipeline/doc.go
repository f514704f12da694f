// Package pipeline runs one prompt through the gateway.
//
// Process performs, in order:
//
//  1. session resolution (a new uuid when the caller sends none)
//  2. detection, with no vault lock held
//  3. tokenization, which merges new placeholders into the session
//  4. the provider call on the sanitized prompt, bounded by a timeout
//  5. detokenization of the completion against the session mapping
//
// Every error is a *Failure naming the stage. Its message carries a
// sanitized category only; errors.As reaches the underlying cause.
//
// Metrics, tracing and evidence recording are optional hooks on Options.
package pipeline
