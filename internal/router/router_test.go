package router

import "testing"

func TestVerifySecretPath(t *testing.T) {
	r := New(Deps{Secret: "correct-horse-battery-staple"})

	cases := []struct {
		name string
		path string
		want bool
	}{
		{"exact match", "correct-horse-battery-staple", true},
		{"wrong value", "guess", false},
		{"empty", "", false},
		{"prefix only", "correct-horse", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.VerifySecretPath(tc.path); got != tc.want {
				t.Errorf("VerifySecretPath(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}
