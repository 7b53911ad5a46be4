package domain

import "fmt"

// ConfigError reports a missing or invalid sheet configuration (no entity
// or filter configured, no tracking column found). It is fatal to the
// current operation and is never retried.
type ConfigError struct {
	Op     string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// RemoteError reports a non-success response or transport failure from the
// CRM API. During a push it is recovered per row: the row is marked Error
// and the batch continues.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote API error: %s", e.Message)
}

// SchemaError reports a failure to flatten a sample record. Callers recover
// by falling back to the entity's static default columns.
type SchemaError struct {
	Entity EntityType
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema extraction failed for %s: %v", e.Entity, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// EncodingError reports an unparseable cell value. The field is skipped for
// that row's payload; the row itself is not aborted.
type EncodingError struct {
	Field string
	Value string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode field %q value %q: %v", e.Field, e.Value, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }
