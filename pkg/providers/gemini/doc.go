// Package gemini implements a Google Gemini adapter over the REST
// generateContent endpoint.
//
// Defaults: model gemini-2.5-flash, temperature 0.7, 2048 max output tokens.
// Prompts blocked by safety filters, and candidates without text, surface as
// providers.EmptyResponseError with the block or finish reason.
package gemini
