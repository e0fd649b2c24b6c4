package i18n

import "testing"

func TestCatalogT(t *testing.T) {
	c := NewFromDefaults()

	cases := []struct {
		name   string
		lang   Language
		key    string
		params map[string]string
		want   string
	}{
		{"english lookup", English, "onboarding.business_name", nil, "What is your business name?"},
		{"hebrew lookup", Hebrew, "onboarding.business_name", nil, "מה שם העסק שלכם?"},
		{"param substitution", English, "invoicegen.produced",
			map[string]string{"invoiceNumber": "20245", "url": "http://x/1.pdf"},
			"Invoice 20245 generated: http://x/1.pdf"},
		{"unknown key falls back to key", English, "no.such.key", nil, "no.such.key"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.T(tc.lang, tc.key, tc.params); got != tc.want {
				t.Errorf("T(%s, %s) = %q, want %q", tc.lang, tc.key, got, tc.want)
			}
		})
	}
}

func TestCatalogFallsBackToDefaultLanguage(t *testing.T) {
	c, err := Load([]byte("greeting:\n  en: hello\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.T(Hebrew, "greeting", nil); got != "hello" {
		t.Errorf("T(he, greeting) = %q, want fallback to en %q", got, "hello")
	}
}

func TestLoadParsesYAML(t *testing.T) {
	doc := []byte(`
foo:
  en: "english {x}"
  he: "hebrew {x}"
`)
	c, err := Load(doc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.T(English, "foo", map[string]string{"x": "1"}); got != "english 1" {
		t.Errorf("got %q", got)
	}
}
