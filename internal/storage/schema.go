package storage

import (
	"encoding/json"
	"strings"

	"golang.org/x/xerrors"
)

// SchemaVersion is the only persisted layout version supported.
const SchemaVersion uint32 = 1

// PartitionSpec declares a partition and its secondary indexes.
type PartitionSpec struct {
	Name    string   `json:"name"`
	Indexes []string `json:"indexes,omitempty"`
}

// Schema describes the partitions of a namespace.
type Schema struct {
	Version    uint32          `json:"version"`
	Kind       string          `json:"kind"`
	Partitions []PartitionSpec `json:"partitions"`
}

// Validate checks that the schema can be laid out by the drivers.
func (s Schema) Validate() error {
	if s.Version != SchemaVersion {
		return xerrors.Errorf("unsupported schema version %d", s.Version)
	}
	if len(s.Partitions) == 0 {
		return xerrors.New("schema has no partition")
	}

	seen := make(map[string]struct{}, len(s.Partitions))
	for _, p := range s.Partitions {
		if err := validName(p.Name); err != nil {
			return xerrors.Errorf("partition: %w", err)
		}
		if _, ok := seen[p.Name]; ok {
			return xerrors.Errorf("duplicate partition '%s'", p.Name)
		}
		seen[p.Name] = struct{}{}

		for _, idx := range p.Indexes {
			if err := validName(idx); err != nil {
				return xerrors.Errorf("index of '%s': %w", p.Name, err)
			}
		}
	}

	return nil
}

// Partition returns the spec of the partition, or false if it is unknown.
func (s Schema) Partition(name string) (PartitionSpec, bool) {
	for _, p := range s.Partitions {
		if p.Name == name {
			return p, true
		}
	}
	return PartitionSpec{}, false
}

// HasIndex returns true if the partition declares the index.
func (p PartitionSpec) HasIndex(name string) bool {
	for _, idx := range p.Indexes {
		if idx == name {
			return true
		}
	}
	return false
}

// Equal returns true if both schemas describe the same layout.
func (s Schema) Equal(o Schema) bool {
	if s.Version != o.Version || s.Kind != o.Kind || len(s.Partitions) != len(o.Partitions) {
		return false
	}
	for i := range s.Partitions {
		a, b := s.Partitions[i], o.Partitions[i]
		if a.Name != b.Name || len(a.Indexes) != len(b.Indexes) {
			return false
		}
		for j := range a.Indexes {
			if a.Indexes[j] != b.Indexes[j] {
				return false
			}
		}
	}
	return true
}

// Marshal returns the persisted form of the schema.
func (s Schema) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode schema: %v", err)
	}
	return data, nil
}

// UnmarshalSchema parses a persisted schema.
func UnmarshalSchema(data []byte) (Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return Schema{}, xerrors.Errorf("failed to decode schema: %v", err)
	}
	return s, nil
}

// CheckPersisted compares the persisted schema with the requested one.
func CheckPersisted(persisted []byte, want Schema) error {
	got, err := UnmarshalSchema(persisted)
	if err != nil {
		return err
	}
	if !got.Equal(want) {
		return xerrors.Errorf("stored kind '%s' version %d: %w", got.Kind, got.Version, ErrSchemaMismatch)
	}
	return nil
}

func validName(name string) error {
	if name == "" {
		return xerrors.New("empty name")
	}
	if strings.ContainsAny(name, "/#") {
		return xerrors.Errorf("invalid name '%s'", name)
	}
	return nil
}
