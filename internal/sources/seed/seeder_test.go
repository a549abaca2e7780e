package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/linkboard/linkboard/internal/domain"
	"github.com/linkboard/linkboard/internal/logger"
)

type fakeStore struct {
	existing int
	lists    []*domain.List
	entries  []*domain.UrlEntry
}

func (f *fakeStore) CountLists(context.Context) (int, error) {
	return f.existing + len(f.lists), nil
}

func (f *fakeStore) CreateList(_ context.Context, list *domain.List) error {
	f.lists = append(f.lists, list)
	return nil
}

func (f *fakeStore) InsertEntry(_ context.Context, e *domain.UrlEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

const seedYAML = `
lists:
  - slug: golang-reading
    title: Go reading list
    public: true
    owner: user-1
    collaborators:
      - email: editor@example.com
        role: editor
    urls:
      - address: https://go.dev
        title: Go
        tags: [go, docs]
      - address: https://pkg.go.dev
`

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lists.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

func TestSeederApply(t *testing.T) {
	store := &fakeStore{}
	s := NewSeeder(writeSeedFile(t, seedYAML), store, logger.New("error", false))

	if err := s.Apply(context.Background()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(store.lists) != 1 || len(store.entries) != 2 {
		t.Errorf("seeded %d lists / %d entries, want 1 / 2", len(store.lists), len(store.entries))
	}
}

func TestSeederSkipsPopulatedStore(t *testing.T) {
	store := &fakeStore{existing: 3}
	s := NewSeeder(writeSeedFile(t, seedYAML), store, logger.New("error", false))

	if err := s.Apply(context.Background()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(store.lists) != 0 {
		t.Errorf("seeded into a populated store")
	}
}

func TestSeederRejectsMalformedFile(t *testing.T) {
	store := &fakeStore{}
	s := NewSeeder(writeSeedFile(t, "lists: [{slug: x}]"), store, logger.New("error", false))

	if err := s.Apply(context.Background()); err == nil {
		t.Error("malformed seed file must fail")
	}
}

func TestSeederMissingFile(t *testing.T) {
	s := NewSeeder("/does/not/exist.yaml", &fakeStore{}, logger.New("error", false))
	if err := s.Apply(context.Background()); err == nil {
		t.Error("missing seed file must fail")
	}
}
