package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the evidence tables. Times and durations are stored as
// integer nanoseconds so both drivers compare them the same way.
const Schema = `
CREATE TABLE IF NOT EXISTS evidence (
    id TEXT PRIMARY KEY,
    request_id TEXT,
    session_hash TEXT,
    user_id TEXT,

    -- Timestamps (unix nanoseconds)
    request_time INTEGER NOT NULL,
    recorded_time INTEGER NOT NULL,

    provider TEXT NOT NULL,
    model TEXT,

    -- Outcome
    status TEXT NOT NULL,
    error_stage TEXT,
    error_type TEXT,

    -- Tokenization
    entity_counts TEXT,
    redacted INTEGER NOT NULL DEFAULT 0,
    kept INTEGER NOT NULL DEFAULT 0,
    placeholders INTEGER NOT NULL DEFAULT 0,
    session_entries INTEGER NOT NULL DEFAULT 0,

    -- Provider usage
    prompt_tokens INTEGER,
    completion_tokens INTEGER,
    total_tokens INTEGER,

    -- Latencies (nanoseconds)
    detect_latency INTEGER,
    provider_latency INTEGER,
    total_latency INTEGER
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_request_time ON evidence(request_time);
CREATE INDEX IF NOT EXISTS idx_evidence_session_hash ON evidence(session_hash);
CREATE INDEX IF NOT EXISTS idx_evidence_provider ON evidence(provider);
CREATE INDEX IF NOT EXISTS idx_evidence_status ON evidence(status);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const evidenceColumns = `id, request_id, session_hash, user_id,
	request_time, recorded_time,
	provider, model,
	status, error_stage, error_type,
	entity_counts, redacted, kept, placeholders, session_entries,
	prompt_tokens, completion_tokens, total_tokens,
	detect_latency, provider_latency, total_latency`
