package menu

import (
	"errors"
	"testing"
)

func TestBuildTemplatePreservesFirstSeenOrder(t *testing.T) {
	raw := []byte(`{"items": [
		{"section": "Soups", "original_name": "Pho", "translated_name": "Beef Noodle Soup", "description": "Rice noodles in broth", "price": 9},
		{"section": "Mains", "original_name": "Com Tam", "translated_name": "Broken Rice", "description": "Grilled pork over rice", "price": 11},
		{"section": "Soups", "original_name": "Bun Bo", "translated_name": "Spicy Beef Soup", "description": "Hue style soup", "price": 10}
	]}`)

	template, err := BuildTemplate(raw)
	if err != nil {
		t.Fatal(err)
	}

	if template.Status != "completed" {
		t.Fatalf("expected completed status, got %q", template.Status)
	}
	if len(template.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(template.Sections))
	}
	if template.Sections[0].Title != "Soups" || template.Sections[1].Title != "Mains" {
		t.Fatalf("sections out of first-seen order: %q, %q",
			template.Sections[0].Title, template.Sections[1].Title)
	}
	soups := template.Sections[0].Dishes
	if len(soups) != 2 || soups[0].OriginalName != "Pho" || soups[1].OriginalName != "Bun Bo" {
		t.Fatalf("dishes out of insertion order: %+v", soups)
	}
}

func TestBuildTemplateDropsIncompleteItems(t *testing.T) {
	raw := []byte(`{"items": [
		{"section": "Menu", "original_name": "  ", "translated_name": "Blank", "description": "whitespace name", "price": 5},
		{"section": "Menu", "original_name": "Ok", "translated_name": "", "description": "missing translation", "price": 5},
		{"section": "Menu", "original_name": "Ok", "translated_name": "Fine", "description": "", "price": 5},
		{"section": "Menu", "original_name": "Keeper", "translated_name": "Kept", "description": "complete", "price": 5},
		"not-an-object"
	]}`)

	template, err := BuildTemplate(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(template.Sections) != 1 || len(template.Sections[0].Dishes) != 1 {
		t.Fatalf("expected exactly one surviving dish, got %+v", template.Sections)
	}
	if template.Sections[0].Dishes[0].OriginalName != "Keeper" {
		t.Fatalf("wrong dish survived: %+v", template.Sections[0].Dishes[0])
	}
}

func TestBuildTemplateDefaultSection(t *testing.T) {
	raw := []byte(`{"items": [
		{"original_name": "A", "translated_name": "A", "description": "a", "price": 1},
		{"section": "  ", "original_name": "B", "translated_name": "B", "description": "b", "price": 2}
	]}`)

	template, err := BuildTemplate(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(template.Sections) != 1 || template.Sections[0].Title != "Menu" {
		t.Fatalf("expected a single default Menu section, got %+v", template.Sections)
	}
	if len(template.Sections[0].Dishes) != 2 {
		t.Fatalf("expected both dishes under the default section")
	}
}

func TestBuildTemplateMissingItems(t *testing.T) {
	for _, raw := range []string{`{}`, `{"dishes": []}`, `[]`, `not json`, `{"items": 7}`} {
		_, err := BuildTemplate([]byte(raw))
		if !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("payload %q: expected ErrMalformedPayload, got %v", raw, err)
		}
	}
}

func TestBuildTemplateEmptyItems(t *testing.T) {
	template, err := BuildTemplate([]byte(`{"items": []}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(template.Sections) != 0 {
		t.Fatalf("expected no sections, got %+v", template.Sections)
	}
}

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		name  string
		value interface{}
		want  *string
	}{
		{"integer", float64(12), strPtr("12")},
		{"decimal", 12.5, strPtr("12.50")},
		{"long decimal", 9.999, strPtr("10.00")},
		{"nil", nil, nil},
		{"empty string", "", nil},
		{"sentinel", "N/A", strPtr("N/A")},
		{"boolean", true, strPtr("true")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := formatPrice(tc.value)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("expected %v, got %v", deref(tc.want), deref(got))
			}
			if got != nil && *got != *tc.want {
				t.Fatalf("expected %q, got %q", *tc.want, *got)
			}
		})
	}
}

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
