// Package pipelineerr defines the error taxonomy shared by every pipeline
// stage: a fixed set of kinds (not Go types) that the orchestrator and
// driver branch on, wrapped with the usual %w error chains.
package pipelineerr

import "fmt"

// Kind classifies why a stage or provider call failed.
type Kind string

const (
	// ConfigMissing: required config/credential absent. Fatal; no retry.
	ConfigMissing Kind = "config_missing"
	// NoProvider: no provider registered for a ServiceKind. Fatal.
	NoProvider Kind = "no_provider"
	// Transient: timeout, rate-limit, 5xx, network. Orchestrator tries the next provider.
	Transient Kind = "transient"
	// InvalidRequest: malformed or out-of-capability input. Orchestrator short-circuits.
	InvalidRequest Kind = "invalid_request"
	// PolicyBlocked: provider refused content. Orchestrator tries next provider.
	PolicyBlocked Kind = "policy_blocked"
	// AllRefused: every provider in the chain returned PolicyBlocked.
	AllRefused Kind = "all_refused"
	// SchemaMismatch: structured response failed to parse.
	SchemaMismatch Kind = "schema_mismatch"
	// DurationMismatch: C6 determined must-regenerate and the retry budget is exhausted.
	DurationMismatch Kind = "duration_mismatch"
	// SyncFailure: C7 could not build a sync plan. Non-fatal; driver falls back to even distribution.
	SyncFailure Kind = "sync_failure"
	// AssetCorrupt: missing or unreadable artifact on disk. Fatal for the driver.
	AssetCorrupt Kind = "asset_corrupt"
	// AllFailed: the fallback chain was exhausted without a PolicyBlocked-only reason.
	AllFailed Kind = "all_failed"
)

// Error carries a taxonomy Kind plus the stage that produced it, wrapping
// the underlying cause so errors.As/errors.Unwrap still work.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error.
func New(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// IsTransient reports whether err is a pipelineerr.Error classified as
// Transient or a retryable PolicyBlocked — the only kinds the fallback
// orchestrator continues past.
func IsTransient(err error) bool {
	var pe *Error
	if ok := asError(err, &pe); ok {
		return pe.Kind == Transient || pe.Kind == PolicyBlocked
	}
	return false
}

// asError is a tiny errors.As shim kept local to avoid importing errors
// twice at call sites that already alias it; behaves identically.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
