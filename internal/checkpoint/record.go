package checkpoint

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SchemaVersion is the metadata format version written by this build.
const SchemaVersion = 1

const (
	metadataFile = "metadata.json"
	packagesFile = "packages.txt"
	groupsFile   = "groups.txt"
)

// Metadata is the typed checkpoint record stored in metadata.json.
type Metadata struct {
	SchemaVersion int    `json:"schema_version"`
	Name          string `json:"name"`
	CreatedAtUTC  string `json:"created_at_utc"`
	Phase         string `json:"phase"`
	TargetUser    string `json:"target_user"`
	RunID         string `json:"run_id,omitempty"`
	Host          string `json:"host,omitempty"`
	PackageCount  int    `json:"package_count"`
	UserExists    bool   `json:"user_exists"`
}

// CreatedAt parses CreatedAtUTC.
func (m Metadata) CreatedAt() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, m.CreatedAtUTC)
}

// Checkpoint is a fully loaded snapshot.
type Checkpoint struct {
	Metadata
	Packages []string
	Groups   []string
}

// Encode serializes metadata after validating it.
func Encode(m Metadata) ([]byte, error) {
	if err := validateMetadata(m); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal checkpoint metadata: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates metadata.
func Decode(data []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("decode checkpoint metadata: %w", err)
	}
	if err := validateMetadata(m); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

func validateMetadata(m Metadata) error {
	if m.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported schema_version %d", m.SchemaVersion)
	}
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	if strings.TrimSpace(m.CreatedAtUTC) == "" {
		return fmt.Errorf("created_at_utc is required")
	}
	if _, err := m.CreatedAt(); err != nil {
		return fmt.Errorf("invalid created_at_utc %q: %w", m.CreatedAtUTC, err)
	}
	if strings.TrimSpace(m.Phase) == "" {
		return fmt.Errorf("phase is required")
	}
	if strings.TrimSpace(m.TargetUser) == "" {
		return fmt.Errorf("target_user is required")
	}
	if m.PackageCount < 0 {
		return fmt.Errorf("package_count must be non-negative, got %d", m.PackageCount)
	}
	return nil
}

// ValidateName rejects names that are not a single path component.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("checkpoint name is required")
	}
	if strings.HasPrefix(name, ".") || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid checkpoint name %q", name)
	}
	return nil
}

// encodeList renders one entry per line, sorted and de-duplicated.
func encodeList(items []string) []byte {
	clean := normalizeList(items)
	if len(clean) == 0 {
		return nil
	}
	return []byte(strings.Join(clean, "\n") + "\n")
}

func decodeList(data []byte) []string {
	return normalizeList(strings.Split(string(data), "\n"))
}

func normalizeList(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
