package money

import "testing"

func TestFormat(t *testing.T) {
	cases := map[int64]string{
		0:       "0",
		999:     "999",
		5000:    "5.000",
		54999:   "54.999",
		1234567: "1.234.567",
		-12000:  "-12.000",
	}
	for in, want := range cases {
		if got := Format(in); got != want {
			t.Fatalf("Format(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestShipping(t *testing.T) {
	if got := Shipping(0); got != "Gratis" {
		t.Fatalf("expected Gratis, got %q", got)
	}
	if got := Shipping(5000); got != "$5.000" {
		t.Fatalf("expected $5.000, got %q", got)
	}
}
