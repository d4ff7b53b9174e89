package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"opensud/utils"
)

// DatasetDescriptor is static metadata identifying a specific remote dataset file and its expected integrity hash.
type DatasetDescriptor struct {
	// URL of the remote file: http(s)://, s3://bucket/key or gs://bucket/object
	URL string
	// SHA256 the pinned hex digest of the file content. Upstream datasets are refreshed periodically,
	// so this value is an advisory integrity signal and may legitimately go stale.
	SHA256 string
	// SourcePage a human page where the current dataset version and its checksum are published
	SourcePage string
	// FileName the name of the local file inside the data directory
	FileName string
}

// MedicaidProviderSpending is the HHS Medicaid Provider Spending dataset: provider-level Medicaid spending
// from T-MSIS, aggregated by billing/servicing provider, procedure code and month.
var MedicaidProviderSpending = DatasetDescriptor{
	URL:        "https://stopendataprod.blob.core.windows.net/datasets/medicaid-provider-spending/2026-02-09/medicaid-provider-spending.parquet",
	SHA256:     "a998e5ae11a391f1eb0d8464b3866a3ee7fe18aa13e56d411c50e72e3a0e35c7",
	SourcePage: "https://opendata.hhs.gov/datasets/medicaid-provider-spending/",
	FileName:   "medicaid-provider-spending.parquet",
}

// Validate checks that the descriptor can be downloaded to a file inside the data directory.
func (d DatasetDescriptor) Validate() error {
	if strings.TrimSpace(d.URL) == "" {
		return fmt.Errorf("dataset URL is empty")
	}
	if strings.TrimSpace(d.FileName) == "" {
		return fmt.Errorf("dataset file name is empty")
	}
	if utils.FindFilePathCharacters(d.FileName) {
		return fmt.Errorf("dataset file name '%s' must not contain path characters", d.FileName)
	}
	return nil
}

// LocalPath returns the path of the dataset file in the given data directory.
func (d DatasetDescriptor) LocalPath(dataDir string) string {
	return filepath.Join(dataDir, d.FileName)
}

// Matches reports whether the given hex digest equals the pinned one. An empty pinned hash matches anything.
func (d DatasetDescriptor) Matches(actual string) bool {
	if d.SHA256 == "" {
		return true
	}
	return strings.EqualFold(d.SHA256, actual)
}
