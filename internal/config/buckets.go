package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"planner/internal/core"
)

// BucketFile is the on-disk shape of the bucket catalogue.
//
//	[[bucket]]
//	id = "loan_emi"
//	name = "Loan EMI"
//	default_status = "pending"
type BucketFile struct {
	Buckets []BucketEntry `toml:"bucket"`
}

type BucketEntry struct {
	ID            string `toml:"id"`
	Name          string `toml:"name"`
	DefaultStatus string `toml:"default_status,omitempty"`
}

// DefaultBuckets is the catalogue used when no file exists.
func DefaultBuckets() []core.Bucket {
	return []core.Bucket{
		{ID: "loan_emi", Name: "Loan EMI", DefaultStatus: core.BucketPending},
		{ID: "credit_card", Name: "Credit Card", DefaultStatus: core.BucketPending},
		{ID: "insurance", Name: "Insurance", DefaultStatus: core.BucketPending},
		{ID: "investments", Name: "Investments", DefaultStatus: core.BucketPending},
		{ID: "savings", Name: "Savings", DefaultStatus: core.BucketPending},
	}
}

// LoadBuckets reads the catalogue at path, returning DefaultBuckets if the
// file doesn't exist.
func LoadBuckets(path string) ([]core.Bucket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultBuckets(), nil
		}
		return nil, fmt.Errorf("reading buckets file: %w", err)
	}

	var f BucketFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing buckets file: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Buckets))
	out := make([]core.Bucket, 0, len(f.Buckets))
	for i, e := range f.Buckets {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return nil, fmt.Errorf("bucket %d: id is required", i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("bucket %q defined twice", id)
		}
		seen[id] = struct{}{}

		status := core.BucketPending
		if e.DefaultStatus != "" {
			status = core.BucketStatus(strings.ToLower(e.DefaultStatus))
			if !status.Valid() {
				return nil, fmt.Errorf("bucket %q: unknown default status %q", id, e.DefaultStatus)
			}
		}
		name := e.Name
		if name == "" {
			name = id
		}
		out = append(out, core.Bucket{ID: id, Name: name, DefaultStatus: status})
	}
	return out, nil
}

// SaveBuckets writes the catalogue to path, creating its directory.
func SaveBuckets(path string, buckets []core.Bucket) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating buckets dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating buckets file: %w", err)
	}
	defer f.Close()

	out := BucketFile{Buckets: make([]BucketEntry, 0, len(buckets))}
	for _, b := range buckets {
		out.Buckets = append(out.Buckets, BucketEntry{ID: b.ID, Name: b.Name, DefaultStatus: string(b.DefaultStatus)})
	}
	return toml.NewEncoder(f).Encode(out)
}
