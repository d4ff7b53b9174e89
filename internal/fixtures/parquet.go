// Package fixtures writes small Parquet files shaped like the Medicaid Provider Spending dataset for tests.
package fixtures

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

// SpendingRow mirrors a subset of the Medicaid Provider Spending columns.
type SpendingRow struct {
	BillingProviderNPI       string  `parquet:"billing_provider_npi"`
	HCPCSCode                string  `parquet:"hcpcs_code"`
	ClaimMonth               string  `parquet:"claim_from_month"`
	TotalUniqueBeneficiaries int64   `parquet:"total_unique_beneficiaries"`
	TotalClaims              int32   `parquet:"total_claims"`
	TotalPaid                float64 `parquet:"total_paid"`
	ManagedCare              bool    `parquet:"managed_care"`
	Note                     *string `parquet:"note,optional"`
}

// SpendingRows generates n deterministic rows, every third row has a NULL note.
func SpendingRows(n int) []SpendingRow {
	rows := make([]SpendingRow, 0, n)
	for i := 0; i < n; i++ {
		var note *string
		if i%3 != 0 {
			s := fmt.Sprintf("note %d", i)
			note = &s
		}
		rows = append(rows, SpendingRow{
			BillingProviderNPI:       fmt.Sprintf("10000000%02d", i),
			HCPCSCode:                fmt.Sprintf("H%04d", i),
			ClaimMonth:               "2024-01",
			TotalUniqueBeneficiaries: int64(10 + i),
			TotalClaims:              int32(100 + i),
			TotalPaid:                float64(i) * 12.5,
			ManagedCare:              i%2 == 0,
			Note:                     note,
		})
	}
	return rows
}

// WriteSpendingParquet writes n rows to a Parquet file in dir and returns its path.
func WriteSpendingParquet(t testing.TB, dir string, name string, n int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := parquet.WriteFile(path, SpendingRows(n)); err != nil {
		t.Fatalf("failed to write the Parquet fixture %s: %v", path, err)
	}
	return path
}
