package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		Version: SchemaVersion,
		Kind:    "simple",
		Partitions: []PartitionSpec{
			{Name: "main", Indexes: []string{"time"}},
		},
	}
}

func TestSchema_Validate(t *testing.T) {
	require.NoError(t, testSchema().Validate())

	s := testSchema()
	s.Version = 2
	require.EqualError(t, s.Validate(), "unsupported schema version 2")

	s = testSchema()
	s.Partitions = nil
	require.EqualError(t, s.Validate(), "schema has no partition")

	s = testSchema()
	s.Partitions = append(s.Partitions, PartitionSpec{Name: "main"})
	require.EqualError(t, s.Validate(), "duplicate partition 'main'")

	s = testSchema()
	s.Partitions[0].Name = "a/b"
	require.EqualError(t, s.Validate(), "partition: invalid name 'a/b'")

	s = testSchema()
	s.Partitions[0].Indexes = []string{""}
	require.EqualError(t, s.Validate(), "index of 'main': empty name")
}

func TestSchema_Lookup(t *testing.T) {
	s := testSchema()

	p, ok := s.Partition("main")
	require.True(t, ok)
	require.True(t, p.HasIndex("time"))
	require.False(t, p.HasIndex("size"))

	_, ok = s.Partition("other")
	require.False(t, ok)
}

func TestSchema_Persisted(t *testing.T) {
	s := testSchema()

	data, err := s.Marshal()
	require.NoError(t, err)
	require.NoError(t, CheckPersisted(data, s))

	other := testSchema()
	other.Kind = "batched"
	err = CheckPersisted(data, other)
	require.ErrorIs(t, err, ErrSchemaMismatch)

	other = testSchema()
	other.Partitions[0].Indexes = nil
	require.ErrorIs(t, CheckPersisted(data, other), ErrSchemaMismatch)

	_, err = UnmarshalSchema([]byte("{"))
	require.Error(t, err)
}

func TestRange_Empty(t *testing.T) {
	require.False(t, Range{From: 1, To: 1}.Empty())
	require.True(t, Range{From: 2, To: 1}.Empty())
	require.False(t, Range{From: 1, To: Unbounded}.Empty())
}

func TestEncodeID(t *testing.T) {
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2}, EncodeID(258))
	require.Equal(t, uint64(258), DecodeID(append([]byte("prefix"), EncodeID(258)...)))
	require.Equal(t, uint64(0), DecodeID([]byte{1}))

	c := ErroredCursor(ErrStoreClosed)
	require.False(t, c.Next())
	require.ErrorIs(t, c.Err(), ErrStoreClosed)
	require.NoError(t, c.Close())

	c = EmptyCursor()
	require.False(t, c.Next())
	require.NoError(t, c.Err())
}
