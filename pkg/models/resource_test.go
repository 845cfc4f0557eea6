package models

import "testing"

func TestResourceClass_Valid(t *testing.T) {
	tests := []struct {
		name  string
		class ResourceClass
		want  bool
	}{
		{"cpu is valid", ResourceCPU, true},
		{"file-io is valid", ResourceFileIO, true},
		{"network is valid", ResourceNetwork, true},
		{"rate-limited is valid", ResourceRateLimited, true},
		{"general is valid", ResourceGeneral, true},
		{"empty string is invalid", ResourceClass(""), false},
		{"underscore spelling is invalid", ResourceClass("file_io"), false},
		{"uppercase is invalid", ResourceClass("CPU"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.class.Valid(); got != tt.want {
				t.Errorf("ResourceClass(%q).Valid() = %v, want %v", tt.class, got, tt.want)
			}
		})
	}
}

func TestParseResourceClass(t *testing.T) {
	got, err := ParseResourceClass("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ResourceGeneral {
		t.Errorf("ParseResourceClass(\"\") = %q, want %q", got, ResourceGeneral)
	}

	got, err = ParseResourceClass("rate-limited")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ResourceRateLimited {
		t.Errorf("ParseResourceClass(rate-limited) = %q", got)
	}

	if _, err := ParseResourceClass("gpu"); err == nil {
		t.Error("expected error for unknown class")
	}
}

func TestAllResourceClasses(t *testing.T) {
	classes := AllResourceClasses()
	if len(classes) != 5 {
		t.Fatalf("expected 5 classes, got %d", len(classes))
	}
	for _, c := range classes {
		if !c.Valid() {
			t.Errorf("class %q should be valid", c)
		}
	}
}
