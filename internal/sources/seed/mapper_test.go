package seed

import (
	"testing"

	"github.com/linkboard/linkboard/internal/domain"
)

func validFile() *File {
	return &File{
		Lists: []ListSpec{
			{
				Slug:   "golang-reading",
				Title:  "Go reading list",
				Public: true,
				Owner:  "user-1",
				Collaborators: []CollaboratorSpec{
					{Email: "editor@example.com", Role: "editor"},
					{Email: "viewer@example.com", Role: "Viewer"},
				},
				URLs: []URLSpec{
					{Address: "https://go.dev", Title: "Go", Tags: []string{"go", "docs"}},
					{Address: "https://pkg.go.dev"},
				},
			},
		},
	}
}

func TestMapLists(t *testing.T) {
	seeded, err := NewMapper().MapLists(validFile())
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(seeded) != 1 {
		t.Fatalf("got %d lists, want 1", len(seeded))
	}

	list := seeded[0].List
	if list.Slug != "golang-reading" || !list.Public || list.OwnerID != "user-1" {
		t.Errorf("list = %+v", list)
	}
	if list.Roles["editor@example.com"] != domain.RoleEditor {
		t.Errorf("editor role = %q", list.Roles["editor@example.com"])
	}
	// Role names are case-insensitive in the seed file.
	if list.Roles["viewer@example.com"] != domain.RoleViewer {
		t.Errorf("viewer role = %q", list.Roles["viewer@example.com"])
	}

	entries := seeded[0].Entries
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for i, e := range entries {
		if e.ListID != list.ID {
			t.Errorf("entry %d not linked to list", i)
		}
		if e.Position == nil || *e.Position != i {
			t.Errorf("entry %d position = %v, want %d", i, e.Position, i)
		}
		if e.Health != domain.HealthUnknown {
			t.Errorf("entry %d health = %q, want unknown", i, e.Health)
		}
	}
}

func TestMapListsValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*File)
	}{
		{"empty file", func(f *File) { f.Lists = nil }},
		{"missing slug", func(f *File) { f.Lists[0].Slug = "" }},
		{"missing title", func(f *File) { f.Lists[0].Title = "" }},
		{"missing owner", func(f *File) { f.Lists[0].Owner = "" }},
		{"bad role", func(f *File) { f.Lists[0].Collaborators[0].Role = "owner" }},
		{"missing address", func(f *File) { f.Lists[0].URLs[0].Address = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFile()
			tt.mutate(f)
			if _, err := NewMapper().MapLists(f); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
