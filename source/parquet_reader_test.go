package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opensud/internal/fixtures"
)

func TestParquetReaderReadsAllRows(t *testing.T) {
	path := fixtures.WriteSpendingParquet(t, t.TempDir(), "spending.parquet", 7)

	reader := NewParquetReader(FileInfo{LocalPath: path}, nil)
	require.NoError(t, reader.Open())
	defer func(reader *ParquetReader) {
		_ = reader.Close()
	}(reader)
	assert.Equal(t, int64(7), reader.RowCount())

	columns, err := reader.Columns()
	require.NoError(t, err)
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{
		"billing_provider_npi", "hcpcs_code", "claim_from_month", "total_unique_beneficiaries",
		"total_claims", "total_paid", "managed_care", "note",
	}, names)

	expected := fixtures.SpendingRows(7)
	count := 0
	for reader.Next() {
		values, err := reader.Values()
		require.NoError(t, err)
		require.Len(t, values, len(columns))

		row := make(map[string]any, len(columns))
		for i, c := range columns {
			row[c.Name] = values[i]
		}
		want := expected[count]
		assert.Equal(t, want.BillingProviderNPI, row["billing_provider_npi"])
		assert.Equal(t, want.TotalUniqueBeneficiaries, row["total_unique_beneficiaries"])
		assert.Equal(t, want.TotalClaims, row["total_claims"])
		assert.Equal(t, want.TotalPaid, row["total_paid"])
		assert.Equal(t, want.ManagedCare, row["managed_care"])
		if want.Note == nil {
			assert.Nil(t, row["note"])
		} else {
			assert.Equal(t, *want.Note, row["note"])
		}
		count++
	}
	require.NoError(t, reader.Err())
	assert.Equal(t, 7, count)
	assert.Equal(t, int64(7), reader.RowsRead())
}

func TestParquetReaderOpensLazily(t *testing.T) {
	path := fixtures.WriteSpendingParquet(t, t.TempDir(), "spending.parquet", 3)

	reader := NewParquetReader(FileInfo{LocalPath: path}, nil)
	count := 0
	for reader.Next() {
		count++
	}
	require.NoError(t, reader.Err())
	assert.Equal(t, 3, count)
	require.NoError(t, reader.Close())
}

func TestParquetReaderInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.parquet")
	require.NoError(t, os.WriteFile(path, []byte("this is not parquet"), 0o644))

	reader := NewParquetReader(FileInfo{LocalPath: path}, nil)
	assert.False(t, reader.Next())
	assert.Error(t, reader.Err())
	_, err := reader.Values()
	assert.Error(t, err)
}

func TestCountRows(t *testing.T) {
	path := fixtures.WriteSpendingParquet(t, t.TempDir(), "spending.parquet", 5)
	count, err := CountRows(FileInfo{LocalPath: path})
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	_, err = CountRows(FileInfo{LocalPath: filepath.Join(t.TempDir(), "missing.parquet")})
	assert.Error(t, err)
}

func TestNativeTransformer(t *testing.T) {
	tr := NativeTransformer{}
	tests := []struct {
		name     string
		value    parquet.Value
		expected any
	}{
		{name: "null", value: parquet.NullValue(), expected: nil},
		{name: "boolean", value: parquet.BooleanValue(true), expected: true},
		{name: "int32", value: parquet.Int32Value(42), expected: int32(42)},
		{name: "int64", value: parquet.Int64Value(42), expected: int64(42)},
		{name: "float", value: parquet.FloatValue(1.5), expected: float32(1.5)},
		{name: "double", value: parquet.DoubleValue(2.5), expected: 2.5},
		{name: "byte array", value: parquet.ByteArrayValue([]byte("H0001")), expected: "H0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.Transform(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestStat(t *testing.T) {
	dir := t.TempDir()
	_, exists, err := Stat(filepath.Join(dir, "missing.parquet"))
	require.NoError(t, err)
	assert.False(t, exists)

	path := filepath.Join(dir, "present.parquet")
	require.NoError(t, os.WriteFile(path, []byte("1234"), 0o644))
	info, exists, err := Stat(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(4), info.Size)

	_, _, err = Stat(dir)
	assert.Error(t, err, "a directory is not a data file")
}
