package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linkboard/linkboard/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedList(t *testing.T, s *Store) *domain.List {
	t.Helper()
	now := time.Now().UTC()
	list := &domain.List{
		ID:      "list-1",
		Slug:    "team-links",
		Title:   "Team links",
		OwnerID: "user-owner",
		Roles: map[string]domain.Role{
			"viewer@example.com": domain.RoleViewer,
		},
		LegacyCollaborators: []string{"legacy@example.com"},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.CreateList(context.Background(), list); err != nil {
		t.Fatalf("create list: %v", err)
	}
	return list
}

func TestGetListBySlug(t *testing.T) {
	s := openTestStore(t)
	seedList(t, s)
	ctx := context.Background()

	list, err := s.GetListBySlug(ctx, "team-links")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if list.ID != "list-1" || list.OwnerID != "user-owner" {
		t.Errorf("list = %+v", list)
	}
	if list.Roles["viewer@example.com"] != domain.RoleViewer {
		t.Errorf("roles = %v", list.Roles)
	}
	if len(list.LegacyCollaborators) != 1 || list.LegacyCollaborators[0] != "legacy@example.com" {
		t.Errorf("legacy collaborators = %v", list.LegacyCollaborators)
	}

	if _, err := s.GetListBySlug(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing slug: got %v, want ErrNotFound", err)
	}
}

func TestEntryLifecycle(t *testing.T) {
	s := openTestStore(t)
	list := seedList(t, s)
	ctx := context.Background()
	now := time.Now().UTC()

	pos := 0
	entry := &domain.UrlEntry{
		ID:        "url-1",
		ListID:    list.ID,
		Address:   "https://example.com",
		Title:     "Example",
		Tags:      []string{"docs"},
		Health:    domain.HealthUnknown,
		Position:  &pos,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.InsertEntry(ctx, entry); err != nil {
		t.Fatalf("insert: %v", err)
	}

	next, err := s.NextPosition(ctx, list.ID)
	if err != nil {
		t.Fatalf("next position: %v", err)
	}
	if next != 1 {
		t.Errorf("next position = %d, want 1", next)
	}

	clicks, err := s.IncrementClicks(ctx, "url-1")
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if clicks != 1 {
		t.Errorf("clicks = %d, want 1", clicks)
	}

	if err := s.ArchiveEntry(ctx, "url-1"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	entries, err := s.EntriesForList(ctx, list.ID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("archived entry still visible: %v", entries)
	}

	// Archived rows stay fetchable by id for history.
	got, err := s.GetEntry(ctx, "url-1")
	if err != nil {
		t.Fatalf("get archived: %v", err)
	}
	if !got.Archived {
		t.Error("entry should be archived")
	}
}

func TestSetPositions(t *testing.T) {
	s := openTestStore(t)
	list := seedList(t, s)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"a", "b", "c"} {
		e := &domain.UrlEntry{
			ID: id, ListID: list.ID, Address: "https://example.com/" + id,
			Health: domain.HealthUnknown, CreatedAt: now, UpdatedAt: now,
		}
		if err := s.InsertEntry(ctx, e); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	if err := s.SetPositions(ctx, list.ID, map[string]int{"a": 2, "b": 0, "c": 1}); err != nil {
		t.Fatalf("set positions: %v", err)
	}

	entries, err := s.EntriesForList(ctx, list.ID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	byID := map[string]int{}
	for _, e := range entries {
		if e.Position == nil {
			t.Fatalf("entry %s missing position", e.ID)
		}
		byID[e.ID] = *e.Position
	}
	if byID["a"] != 2 || byID["b"] != 0 || byID["c"] != 1 {
		t.Errorf("positions = %v", byID)
	}
}

func TestActivityLedger(t *testing.T) {
	s := openTestStore(t)
	list := seedList(t, s)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)
	for i, id := range []string{"01AAA", "01BBB", "01CCC"} {
		rec := &domain.ActivityRecord{
			ID:         id,
			ListID:     list.ID,
			ActorID:    "user-owner",
			ActorEmail: "owner@example.com",
			Action:     domain.ActionURLAdded,
			Details:    domain.URLAddedDetails{URLID: "url-1", Address: "https://example.com"},
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := s.InsertActivity(ctx, rec); err != nil {
			t.Fatalf("insert activity: %v", err)
		}
	}

	records, err := s.ActivitiesForList(ctx, list.ID, 2)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "01CCC" || records[1].ID != "01BBB" {
		t.Errorf("order = %s, %s; want newest first", records[0].ID, records[1].ID)
	}

	details, ok := records[0].Details.(domain.URLAddedDetails)
	if !ok || details.Address != "https://example.com" {
		t.Errorf("details = %#v", records[0].Details)
	}
}

func TestListDeleteCascades(t *testing.T) {
	s := openTestStore(t)
	list := seedList(t, s)
	ctx := context.Background()
	now := time.Now().UTC()

	e := &domain.UrlEntry{
		ID: "url-1", ListID: list.ID, Address: "https://example.com",
		Health: domain.HealthUnknown, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.InsertEntry(ctx, e); err != nil {
		t.Fatalf("insert entry: %v", err)
	}
	rec := &domain.ActivityRecord{
		ID: "01AAA", ListID: list.ID, Action: domain.ActionListCreated,
		CreatedAt: now,
	}
	if err := s.InsertActivity(ctx, rec); err != nil {
		t.Fatalf("insert activity: %v", err)
	}

	if err := s.DeleteList(ctx, list.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}

	if _, err := s.GetEntry(ctx, "url-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("entry should cascade on list delete, got %v", err)
	}
	records, err := s.ActivitiesForList(ctx, list.ID, 10)
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("activities should cascade on list delete, got %d", len(records))
	}
}
