package validation

import (
	"strings"
	"testing"
)

func TestValidateCategorySlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		slug string
		ok   bool
	}{
		{name: "valid landscape", slug: "landscape", ok: true},
		{name: "valid with number", slug: "film-35mm", ok: true},
		{name: "minimum length", slug: "bw", ok: true},
		{name: "too short", slug: "a", ok: false},
		{name: "maximum length", slug: strings.Repeat("a", 64), ok: true},
		{name: "too long", slug: strings.Repeat("a", 65), ok: false},
		{name: "uppercase", slug: "Lenses", ok: false},
		{name: "underscore", slug: "street_photo", ok: false},
		{name: "space", slug: "street photo", ok: false},
		{name: "japanese", slug: "風景", ok: false},
		{name: "leading hyphen", slug: "-gear", ok: false},
		{name: "trailing hyphen", slug: "gear-", ok: false},
		{name: "reserved admin", slug: "admin", ok: false},
		{name: "reserved topics", slug: "topics", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCategorySlug(tc.slug)
			if tc.ok && err != nil {
				t.Fatalf("expected valid slug, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected invalid slug, got nil error")
			}
		})
	}
}
