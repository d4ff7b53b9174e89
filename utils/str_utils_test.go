package utils

import "testing"

func TestFindFilePathCharacters(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"medicaid-provider-spending.parquet", false},
		{"../secret", true},
		{"dir/file.parquet", true},
		{"file..parquet", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FindFilePathCharacters(tt.input); got != tt.expected {
				t.Errorf("FindFilePathCharacters(%q) = %v; want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsNotBlank(t *testing.T) {
	blank := "  \t"
	value := "x"
	if IsNotBlank(nil) {
		t.Errorf("IsNotBlank(nil) = true; want false")
	}
	if IsNotBlank(&blank) {
		t.Errorf("IsNotBlank(%q) = true; want false", blank)
	}
	if !IsNotBlank(&value) {
		t.Errorf("IsNotBlank(%q) = false; want true", value)
	}
}
