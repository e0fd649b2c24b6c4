package onboarding

import "testing"

func TestParseOwnerDetails(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "Jane Doe, 123456789, +1 555-123-4567, jane@example.com", false},
		{"wrong field count", "Jane Doe, 123456789", true},
		{"bad tax id", "Jane Doe, 12345, 555-123-4567, jane@example.com", true},
		{"bad email", "Jane Doe, 123456789, 555-123-4567, not-an-email", true},
		{"bad phone", "Jane Doe, 123456789, abc, jane@example.com", true},
		{"empty name", " , 123456789, 555-123-4567, jane@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOwnerDetails(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseOwnerDetails(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestParseCounterSeed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"start from 1 literal", "start-from-1", 1, false},
		{"start from 1 case insensitive", "Start-From-1", 1, false},
		{"positive integer", "42", 42, false},
		{"zero rejected", "0", 0, true},
		{"negative rejected", "-5", 0, true},
		{"non-numeric rejected", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCounterSeed(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseCounterSeed(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseCounterSeed(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidTaxStatus(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"licensed_dealer", true},
		{"EXEMPT_DEALER", true},
		{"company", true},
		{"sole_proprietor", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidTaxStatus(tt.input); got != tt.want {
			t.Errorf("ValidTaxStatus(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidLanguage(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"en", true},
		{"HE", true},
		{"fr", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidLanguage(tt.input); got != tt.want {
			t.Errorf("ValidLanguage(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
