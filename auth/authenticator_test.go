package auth

import (
	"context"
	"testing"
)

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"canonical", "AAAA-BBBB-CCCC-DDDD-EEEE", "AAAA-BBBB-CCCC-DDDD-EEEE", true},
		{"lowercase", "aaaa-bbbb-cccc-dddd-eeee", "AAAA-BBBB-CCCC-DDDD-EEEE", true},
		{"surrounding whitespace", "  AAAA-BBBB-CCCC-DDDD-EEEE\n", "AAAA-BBBB-CCCC-DDDD-EEEE", true},
		{"interior whitespace", "AAAA-BBBB- CCCC-DDDD-EEEE", "AAAA-BBBB-CCCC-DDDD-EEEE", true},
		{"too short", "AAAA-BBBB-CCCC-DDDD", "", false},
		{"bad characters", "AAAA-BBBB-CCCC-DDDD-EE!E", "", false},
		{"empty", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeKey(tc.raw)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("NormalizeKey(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestExtractLicenseKey(t *testing.T) {
	if key, ok := extractLicenseKey("LicenseKey " + testKey); !ok || key != testKey {
		t.Fatalf("expected key, got %q, %v", key, ok)
	}
	if key, ok := extractLicenseKey("licensekey " + testKey); !ok || key != testKey {
		t.Fatalf("expected case-insensitive scheme, got %q, %v", key, ok)
	}
	if _, ok := extractLicenseKey("Bearer " + testKey); ok {
		t.Fatalf("expected foreign scheme to be rejected")
	}
	if _, ok := extractLicenseKey("LicenseKey"); ok {
		t.Fatalf("expected missing credential to be rejected")
	}
	if _, ok := extractLicenseKey(""); ok {
		t.Fatalf("expected empty header to be rejected")
	}
}

func TestAuthenticate(t *testing.T) {
	a := NewAuthenticator(newFakeDirectory(testIdentity()))

	ident, err := a.Authenticate(context.Background(), "LicenseKey "+testKey)
	if err != nil || ident == nil || ident.ID != "id-1" {
		t.Fatalf("expected identity, got %v, %v", ident, err)
	}

	ident, err = a.Authenticate(context.Background(), "LicenseKey ZZZZ-ZZZZ-ZZZZ-ZZZZ-ZZZZ")
	if err != nil || ident != nil {
		t.Fatalf("expected nil, nil for unknown key, got %v, %v", ident, err)
	}

	ident, err = a.Authenticate(context.Background(), "garbage")
	if err != nil || ident != nil {
		t.Fatalf("expected nil, nil for malformed header, got %v, %v", ident, err)
	}
}

func TestValidateStampsLastValidated(t *testing.T) {
	directory := newFakeDirectory(testIdentity())
	a := NewAuthenticator(directory)

	ident, err := a.Validate(context.Background(), "aaaa-bbbb-cccc-dddd-eeee")
	if err != nil || ident == nil {
		t.Fatalf("expected identity, got %v, %v", ident, err)
	}
	if directory.validatedAt["id-1"].IsZero() {
		t.Fatalf("expected lastValidatedAt to be stamped")
	}

	ident, err = a.Validate(context.Background(), "ZZZZ-ZZZZ-ZZZZ-ZZZZ-ZZZZ")
	if err != nil || ident != nil {
		t.Fatalf("expected nil, nil for unknown key, got %v, %v", ident, err)
	}
	if len(directory.validatedAt) != 1 {
		t.Fatalf("unknown key must not stamp anything")
	}
}
