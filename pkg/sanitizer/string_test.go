package sanitizer

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim spaces", "  Jane Doe  ", "Jane Doe"},
		{"multiple spaces between words", "Jane    Doe", "Jane Doe"},
		{"tabs and newlines", "Jane\t\nDoe", "Jane Doe"},
		{"empty string", "", ""},
		{"only whitespace", "   \t\n  ", ""},
		{"preserve accents", " José Müller ", "José Müller"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := NormalizeName(NormalizeName(tt.input)); again != tt.want {
				t.Errorf("NormalizeName is not idempotent: %q", again)
			}
		})
	}
}

func TestTrim(t *testing.T) {
	if got := Trim("  +1 555  0100 \n"); got != "+1 555  0100" {
		t.Errorf("Trim should keep inner spacing, got %q", got)
	}
}

func TestNormalizeSearch(t *testing.T) {
	if got := NormalizeSearch("  CARDIO  logy "); got != "cardio logy" {
		t.Errorf("NormalizeSearch() = %q", got)
	}
}

func TestContainsFold(t *testing.T) {
	tests := []struct {
		haystack string
		needle   string
		want     bool
	}{
		{"Cardiology", "cardio", true},
		{"Dr. Sarah Johnson", "SARAH", true},
		{"Neurology", "cardio", false},
		{"anything", "", true},
	}

	for _, tt := range tests {
		if got := ContainsFold(tt.haystack, tt.needle); got != tt.want {
			t.Errorf("ContainsFold(%q, %q) = %v, want %v", tt.haystack, tt.needle, got, tt.want)
		}
	}
}
