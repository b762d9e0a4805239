package prefit

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"golang.org/x/crypto/blake2b"

	"takeoverbench/internal/projection"
)

// Encode renders a table as canonical JSON: keys sorted at every level,
// two-space indent and a trailing newline.
func Encode(table projection.FittedTable) ([]byte, error) {
	if table == nil {
		table = projection.FittedTable{}
	}
	raw, err := json.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("encode fitted table: %w", err)
	}
	return canonical(raw)
}

// canonical re-encodes JSON through generic maps, which encoding/json
// writes with sorted keys.
func canonical(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parse fitted table: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// Digest is the hex BLAKE2b-256 of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WriteFile writes the canonical form of table to path and returns its digest.
func WriteFile(path string, table projection.FittedTable) (string, error) {
	data, err := Encode(table)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return Digest(data), nil
}

// Report is the outcome of comparing a stored table with a fresh fit.
type Report struct {
	UpToDate       bool     `json:"up_to_date"`
	ExistingDigest string   `json:"existing_digest"`
	ComputedDigest string   `json:"computed_digest"`
	Added          []string `json:"added,omitempty"`
	Removed        []string `json:"removed,omitempty"`
	Changed        []string `json:"changed,omitempty"`
}

// Verify compares the stored table bytes with a freshly computed table. The
// stored bytes may be in any key order or indentation.
func Verify(existing []byte, computed projection.FittedTable) (Report, error) {
	stored, err := canonical(existing)
	if err != nil {
		return Report{}, err
	}
	fresh, err := Encode(computed)
	if err != nil {
		return Report{}, err
	}

	r := Report{
		UpToDate:       bytes.Equal(stored, fresh),
		ExistingDigest: Digest(stored),
		ComputedDigest: Digest(fresh),
	}
	if r.UpToDate {
		return r, nil
	}

	var old map[string]json.RawMessage
	if err := json.Unmarshal(existing, &old); err != nil {
		return Report{}, fmt.Errorf("parse fitted table: %w", err)
	}
	for id, p := range computed {
		prev, ok := old[id]
		if !ok {
			r.Added = append(r.Added, id)
			continue
		}
		a, errA := canonical(prev)
		single, errB := json.Marshal(p)
		if errA != nil || errB != nil {
			r.Changed = append(r.Changed, id)
			continue
		}
		if b, err := canonical(single); err != nil || !bytes.Equal(a, b) {
			r.Changed = append(r.Changed, id)
		}
	}
	for id := range old {
		if _, ok := computed[id]; !ok {
			r.Removed = append(r.Removed, id)
		}
	}
	slices.Sort(r.Added)
	slices.Sort(r.Removed)
	slices.Sort(r.Changed)
	return r, nil
}
