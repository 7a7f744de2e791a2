package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gharib85/Pibronic/internal/layout"
)

// HashKey is the reserved record member holding the integrity hash.
const HashKey = "hash"

// ErrNotFound is returned by Load when no record exists at the path.
// This is the expected state before the first job for a record completes.
var ErrNotFound = errors.New("result record not found")

// ValidationError reports a record file that exists but cannot be used.
type ValidationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid result record %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid result record %s: %s", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationFailure reports whether err is a ValidationError.
func IsValidationFailure(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Record is a keyed collection of computed values plus the hash of the
// inputs that produced them. Entry values are kept as raw JSON; this package
// never interprets them.
type Record struct {
	Hash    string
	Entries map[string]json.RawMessage
}

// NewRecord returns an empty record for the given input hash.
func NewRecord(hash string) *Record {
	return &Record{Hash: hash, Entries: map[string]json.RawMessage{}}
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	if r == nil {
		return false
	}
	_, ok := r.Entries[key]
	return ok
}

// Keys returns the entry keys, sorted.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.Entries))
	for k := range r.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON writes the record as one flat object.
func (r *Record) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(r.Entries)+1)
	for k, v := range r.Entries {
		obj[k] = v
	}
	hash, err := json.Marshal(r.Hash)
	if err != nil {
		return nil, err
	}
	obj[HashKey] = hash
	// encoding/json sorts map keys, so output is stable.
	return json.Marshal(obj)
}

// UnmarshalJSON reads a flat object. The hash member must be a string.
func (r *Record) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj == nil {
		return errors.New("record is not a JSON object")
	}

	rec := NewRecord("")
	if raw, ok := obj[HashKey]; ok {
		if err := json.Unmarshal(raw, &rec.Hash); err != nil {
			return fmt.Errorf("%s member: %w", HashKey, err)
		}
		delete(obj, HashKey)
	}
	for k, v := range obj {
		rec.Entries[k] = v
	}
	*r = *rec
	return nil
}

// Load reads the record at path.
//
// Returns ErrNotFound if the file does not exist, and a *ValidationError if
// it exists but is not a well-formed record.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load result record: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ValidationError{Path: path, Reason: "empty file"}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &ValidationError{Path: path, Reason: "malformed JSON", Err: err}
	}
	return &rec, nil
}

// Validate reports whether rec was produced from inputs with expectedHash.
// A nil record, a record without a hash, or an empty expected hash are all
// invalid.
func Validate(rec *Record, expectedHash string) bool {
	if rec == nil || rec.Hash == "" || expectedHash == "" {
		return false
	}
	return rec.Hash == expectedHash
}

// Write stores rec at path. The file is replaced atomically so concurrent
// readers see either the old or the new record, never a partial one.
func Write(path string, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("write result record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write result record: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write result record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write result record: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write result record: %w", err)
	}
	return nil
}

// Upsert sets key to value in the record at path.
//
// If the existing record is missing, malformed, or was produced from other
// inputs, it is discarded and a fresh record with hash is started. Stale
// entries are never merged forward.
func Upsert(path, hash, key string, value any) error {
	if key == HashKey {
		return fmt.Errorf("upsert: %q is reserved", HashKey)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("upsert: marshal value: %w", err)
	}

	rec, err := Load(path)
	switch {
	case err == nil && Validate(rec, hash):
	case err == nil, errors.Is(err, ErrNotFound), IsValidationFailure(err):
		rec = NewRecord(hash)
	default:
		return fmt.Errorf("upsert: %w", err)
	}

	rec.Entries[key] = raw
	return Write(path, rec)
}

// TemperatureKey is the entry key for a temperature.
func TemperatureKey(temperature float64) string {
	return layout.FormatTemperature(temperature)
}
