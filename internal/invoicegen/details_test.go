package invoicegen

import "testing"

func TestParseDetails(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid three fields", "Acme Ltd, 120.50, consulting hours", false},
		{"valid four fields", "Acme Ltd, 120.50, consulting hours, 123456789", false},
		{"too few fields", "Acme Ltd, 120.50", true},
		{"too many fields", "a, b, c, d, e", true},
		{"empty name", " , 120.50, consulting hours", true},
		{"non-numeric amount", "Acme Ltd, abc, consulting hours", true},
		{"zero amount", "Acme Ltd, 0, consulting hours", true},
		{"negative amount", "Acme Ltd, -5, consulting hours", true},
		{"empty description", "Acme Ltd, 120.50, ", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDetails(tc.input)
			if (err != nil) != tc.wantErr {
				t.Errorf("ParseDetails(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
		})
	}
}

func TestValidPaymentMethod(t *testing.T) {
	cases := []struct {
		method string
		want   bool
	}{
		{"cash", true}, {"check", true}, {"bank_transfer", true},
		{"credit_card", true}, {"other", true}, {"bitcoin", false}, {"", false},
	}
	for _, tc := range cases {
		if got := ValidPaymentMethod(tc.method); got != tc.want {
			t.Errorf("ValidPaymentMethod(%q) = %v, want %v", tc.method, got, tc.want)
		}
	}
}

func TestValidDocumentType(t *testing.T) {
	cases := []struct {
		docType string
		want    bool
	}{
		{"invoice", true}, {"invoice_receipt", true}, {"receipt", false}, {"", false},
	}
	for _, tc := range cases {
		if got := ValidDocumentType(tc.docType); got != tc.want {
			t.Errorf("ValidDocumentType(%q) = %v, want %v", tc.docType, got, tc.want)
		}
	}
}
