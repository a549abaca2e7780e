package lists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linkboard/linkboard/internal/domain"
	"github.com/linkboard/linkboard/internal/events"
	"github.com/linkboard/linkboard/internal/ledger"
	"github.com/linkboard/linkboard/internal/logger"
)

// ErrInvalidOrder is returned when a reorder does not cover exactly the
// active entries of the list.
var ErrInvalidOrder = errors.New("order does not match active entries")

// Store is the persistence surface for mutations.
type Store interface {
	CreateList(ctx context.Context, list *domain.List) error
	GetListBySlug(ctx context.Context, slug string) (*domain.List, error)
	UpdateListMeta(ctx context.Context, list *domain.List) error
	DeleteList(ctx context.Context, id string) error
	SetCollaborator(ctx context.Context, listID, email string, role domain.Role) error
	RemoveCollaborator(ctx context.Context, listID, email string) error

	InsertEntry(ctx context.Context, e *domain.UrlEntry) error
	GetEntry(ctx context.Context, id string) (*domain.UrlEntry, error)
	UpdateEntry(ctx context.Context, e *domain.UrlEntry) error
	ArchiveEntry(ctx context.Context, id string) error
	EntriesForList(ctx context.Context, listID string) ([]*domain.UrlEntry, error)
	NextPosition(ctx context.Context, listID string) (int, error)
	SetPositions(ctx context.Context, listID string, positions map[string]int) error
	IncrementClicks(ctx context.Context, id string) (int64, error)
}

// Service owns every mutating operation on lists and entries. Each
// operation runs through the single permission enforcement point,
// persists, appends to the durable ledger (failures propagate) and
// publishes change envelopes (failures swallowed by the publisher).
type Service struct {
	store        Store
	ledger       *ledger.Ledger
	publisher    *events.Publisher
	logger       logger.Logger
	probeTimeout time.Duration
}

// New creates the mutation service.
func New(store Store, led *ledger.Ledger, pub *events.Publisher, logging logger.Logger, probeTimeout time.Duration) *Service {
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	return &Service{
		store:        store,
		ledger:       led,
		publisher:    pub,
		logger:       logging,
		probeTimeout: probeTimeout,
	}
}

type CreateListInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// CreateList creates a list owned by the actor.
func (s *Service) CreateList(ctx context.Context, actor *domain.Identity, in CreateListInput) (*domain.List, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}

	now := time.Now().UTC()
	list := &domain.List{
		ID:          uuid.NewString(),
		Slug:        s.uniqueSlug(ctx, in.Title),
		Title:       in.Title,
		Description: in.Description,
		Public:      in.Public,
		OwnerID:     actor.ID,
		Roles:       map[string]domain.Role{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateList(ctx, list); err != nil {
		return nil, err
	}

	rec, err := s.ledger.Record(ctx, list.ID, actor, domain.ActionListCreated,
		domain.ListCreatedDetails{Title: list.Title})
	if err != nil {
		return nil, err
	}
	s.publisher.ListUpdated(ctx, list.ID, domain.ActionListCreated)
	s.publisher.ActivityCreated(ctx, rec)
	return list, nil
}

type UpdateListInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Public      *bool   `json:"public,omitempty"`
}

// UpdateList changes list metadata and/or visibility.
func (s *Service) UpdateList(ctx context.Context, slug string, actor *domain.Identity, in UpdateListInput) (*domain.List, error) {
	list, err := s.store.GetListBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireCapability(list, actor, domain.CapEdit); err != nil {
		return nil, err
	}

	var fields []string
	if in.Title != nil && *in.Title != list.Title {
		list.Title = *in.Title
		fields = append(fields, "title")
	}
	if in.Description != nil && *in.Description != list.Description {
		list.Description = *in.Description
		fields = append(fields, "description")
	}
	visibilityChanged := in.Public != nil && *in.Public != list.Public
	if visibilityChanged {
		list.Public = *in.Public
	}
	if len(fields) == 0 && !visibilityChanged {
		return list, nil
	}

	list.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateListMeta(ctx, list); err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		rec, err := s.ledger.Record(ctx, list.ID, actor, domain.ActionListUpdated,
			domain.ListUpdatedDetails{Fields: fields})
		if err != nil {
			return nil, err
		}
		s.publisher.ListUpdated(ctx, list.ID, domain.ActionListUpdated)
		s.publisher.ActivityCreated(ctx, rec)
	}
	if visibilityChanged {
		rec, err := s.ledger.Record(ctx, list.ID, actor, domain.ActionVisibilityChanged,
			domain.VisibilityChangedDetails{Public: list.Public})
		if err != nil {
			return nil, err
		}
		s.publisher.ListUpdated(ctx, list.ID, domain.ActionVisibilityChanged)
		s.publisher.ActivityCreated(ctx, rec)
	}
	return list, nil
}

// DeleteList removes a list. The ledger rows cascade away with it, so
// the streamed envelope is the only after-the-fact signal.
func (s *Service) DeleteList(ctx context.Context, slug string, actor *domain.Identity) error {
	list, err := s.store.GetListBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := domain.RequireCapability(list, actor, domain.CapDelete); err != nil {
		return err
	}

	if err := s.store.DeleteList(ctx, list.ID); err != nil {
		return err
	}
	s.publisher.ListUpdated(ctx, list.ID, domain.ActionListDeleted)
	return nil
}

type AddURLInput struct {
	Address     string   `json:"address"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
}

// AddURL appends an entry at the end of the canonical order.
func (s *Service) AddURL(ctx context.Context, slug string, actor *domain.Identity, in AddURLInput) (*domain.UrlEntry, error) {
	list, err := s.store.GetListBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireCapability(list, actor, domain.CapEdit); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Address) == "" {
		return nil, fmt.Errorf("address is required")
	}

	position, err := s.store.NextPosition(ctx, list.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := &domain.UrlEntry{
		ID:          uuid.NewString(),
		ListID:      list.ID,
		Address:     in.Address,
		Title:       in.Title,
		Description: in.Description,
		Tags:        in.Tags,
		Category:    in.Category,
		Health:      domain.HealthUnknown,
		Position:    &position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertEntry(ctx, entry); err != nil {
		return nil, err
	}

	rec, err := s.ledger.Record(ctx, list.ID, actor, domain.ActionURLAdded,
		domain.URLAddedDetails{URLID: entry.ID, Address: entry.Address, Title: entry.Title})
	if err != nil {
		return nil, err
	}
	s.publisher.ListUpdated(ctx, list.ID, domain.ActionURLAdded)
	s.publisher.ActivityCreated(ctx, rec)
	return entry, nil
}

type UpdateURLInput struct {
	Address     *string   `json:"address,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Favorite    *bool     `json:"favorite,omitempty"`
	Pinned      *bool     `json:"pinned,omitempty"`
}

// UpdateURL edits an entry in place.
func (s *Service) UpdateURL(ctx context.Context, slug, urlID string, actor *domain.Identity, in UpdateURLInput) (*domain.UrlEntry, error) {
	list, entry, err := s.entryInList(ctx, slug, urlID)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireCapability(list, actor, domain.CapEdit); err != nil {
		return nil, err
	}

	var fields []string
	if in.Address != nil && *in.Address != entry.Address {
		entry.Address = *in.Address
		// An edited address invalidates the last health observation.
		entry.Health = domain.HealthUnknown
		fields = append(fields, "address")
	}
	if in.Title != nil && *in.Title != entry.Title {
		entry.Title = *in.Title
		fields = append(fields, "title")
	}
	if in.Description != nil && *in.Description != entry.Description {
		entry.Description = *in.Description
		fields = append(fields, "description")
	}
	if in.Tags != nil {
		entry.Tags = *in.Tags
		fields = append(fields, "tags")
	}
	if in.Category != nil && *in.Category != entry.Category {
		entry.Category = *in.Category
		fields = append(fields, "category")
	}
	if in.Favorite != nil && *in.Favorite != entry.Favorite {
		entry.Favorite = *in.Favorite
		fields = append(fields, "favorite")
	}
	if in.Pinned != nil && *in.Pinned != entry.Pinned {
		entry.Pinned = *in.Pinned
		fields = append(fields, "pinned")
	}
	if len(fields) == 0 {
		return entry, nil
	}

	entry.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}

	rec, err := s.ledger.Record(ctx, list.ID, actor, domain.ActionURLUpdated,
		domain.URLUpdatedDetails{URLID: entry.ID, Fields: fields})
	if err != nil {
		return nil, err
	}
	s.publisher.ListUpdated(ctx, list.ID, domain.ActionURLUpdated)
	s.publisher.ActivityCreated(ctx, rec)
	return entry, nil
}

// DeleteURL archives an entry; it vanishes from reads but stays for
// history.
func (s *Service) DeleteURL(ctx context.Context, slug, urlID string, actor *domain.Identity) error {
	list, entry, err := s.entryInList(ctx, slug, urlID)
	if err != nil {
		return err
	}
	if err := domain.RequireCapability(list, actor, domain.CapEdit); err != nil {
		return err
	}

	if err := s.store.ArchiveEntry(ctx, entry.ID); err != nil {
		return err
	}

	rec, err := s.ledger.Record(ctx, list.ID, actor, domain.ActionURLDeleted,
		domain.URLDeletedDetails{URLID: entry.ID, Address: entry.Address})
	if err != nil {
		return err
	}
	s.publisher.ListUpdated(ctx, list.ID, domain.ActionURLDeleted)
	s.publisher.ActivityCreated(ctx, rec)
	return nil
}

// ReorderURLs persists a full new canonical order. The order must cover
// exactly the active entries. The whole-collection write is
// last-write-wins: concurrent reorders clobber each other.
func (s *Service) ReorderURLs(ctx context.Context, slug string, actor *domain.Identity, order []string) error {
	list, err := s.store.GetListBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := domain.RequireCapability(list, actor, domain.CapEdit); err != nil {
		return err
	}

	entries, err := s.store.EntriesForList(ctx, list.ID)
	if err != nil {
		return err
	}
	if len(order) != len(entries) {
		return ErrInvalidOrder
	}
	active := make(map[string]bool, len(entries))
	for _, e := range entries {
		active[e.ID] = true
	}
	positions := make(map[string]int, len(order))
	for i, id := range order {
		if !active[id] {
			return ErrInvalidOrder
		}
		if _, dup := positions[id]; dup {
			return ErrInvalidOrder
		}
		positions[id] = i
	}

	if err := s.store.SetPositions(ctx, list.ID, positions); err != nil {
		return err
	}

	rec, err := s.ledger.Record(ctx, list.ID, actor, domain.ActionURLsReordered,
		domain.URLsReorderedDetails{Order: order})
	if err != nil {
		return err
	}
	s.publisher.ListUpdated(ctx, list.ID, domain.ActionURLsReordered)
	s.publisher.ActivityCreated(ctx, rec)
	return nil
}

// RecordClick bumps an entry's counter. The click envelope carries the
// fresh counter so clients patch in place instead of refetching; the
// activity channel stays quiet to keep this path cheap.
func (s *Service) RecordClick(ctx context.Context, slug, urlID string, actor *domain.Identity) (int64, error) {
	list, entry, err := s.entryInList(ctx, slug, urlID)
	if err != nil {
		return 0, err
	}
	if domain.RoleFor(list, actor) == domain.RoleNone {
		if actor == nil {
			return 0, domain.ErrUnauthorized
		}
		return 0, domain.ErrPermissionDenied
	}

	clicks, err := s.store.IncrementClicks(ctx, entry.ID)
	if err != nil {
		return 0, err
	}

	if _, err := s.ledger.Record(ctx, list.ID, actor, domain.ActionURLClicked,
		domain.URLClickedDetails{URLID: entry.ID, Clicks: clicks}); err != nil {
		return 0, err
	}
	s.publisher.URLClicked(ctx, list.ID, entry.ID, clicks)
	return clicks, nil
}

// CheckHealth probes an entry's address and records a transition when
// the observed status differs from the stored one.
func (s *Service) CheckHealth(ctx context.Context, slug, urlID string, actor *domain.Identity) (domain.HealthStatus, error) {
	list, entry, err := s.entryInList(ctx, slug, urlID)
	if err != nil {
		return domain.HealthUnknown, err
	}
	if err := domain.RequireCapability(list, actor, domain.CapEdit); err != nil {
		return domain.HealthUnknown, err
	}

	status := domain.ProbeURL(entry.Address, s.probeTimeout)
	if status == entry.Health {
		return status, nil
	}

	previous := entry.Health
	entry.Health = status
	entry.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		return domain.HealthUnknown, err
	}

	rec, err := s.ledger.Record(ctx, list.ID, actor, domain.ActionURLHealthChanged,
		domain.URLHealthChangedDetails{URLID: entry.ID, From: previous, To: status})
	if err != nil {
		return domain.HealthUnknown, err
	}
	s.publisher.ListUpdated(ctx, list.ID, domain.ActionURLHealthChanged)
	s.publisher.ActivityCreated(ctx, rec)
	return status, nil
}

// AddComment records a comment. Anyone with a resolvable role may
// comment, including anonymous viewers of public lists.
func (s *Service) AddComment(ctx context.Context, slug, urlID string, actor *domain.Identity, text string) (*domain.ActivityRecord, error) {
	list, err := s.store.GetListBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireCapability(list, actor, domain.CapComment); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("comment is empty")
	}

	rec, err := s.ledger.Record(ctx, list.ID, actor, domain.ActionCommentAdded,
		domain.CommentAddedDetails{URLID: urlID, Comment: text})
	if err != nil {
		return nil, err
	}
	s.publisher.ActivityCreated(ctx, rec)
	return rec, nil
}

// AddCollaborator grants an explicit role. Owner only.
func (s *Service) AddCollaborator(ctx context.Context, slug string, actor *domain.Identity, email string, role domain.Role) error {
	list, err := s.store.GetListBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := domain.RequireCapability(list, actor, domain.CapInvite); err != nil {
		return err
	}
	if role != domain.RoleEditor && role != domain.RoleViewer {
		return fmt.Errorf("role must be editor or viewer, got %q", role)
	}

	if err := s.store.SetCollaborator(ctx, list.ID, email, role); err != nil {
		return err
	}

	rec, err := s.ledger.Record(ctx, list.ID, actor, domain.ActionCollaboratorAdded,
		domain.CollaboratorAddedDetails{Email: email, Role: role})
	if err != nil {
		return err
	}
	s.publisher.ListUpdated(ctx, list.ID, domain.ActionCollaboratorAdded)
	s.publisher.ActivityCreated(ctx, rec)
	return nil
}

// RemoveCollaborator revokes a roster entry, explicit or legacy. Owner only.
func (s *Service) RemoveCollaborator(ctx context.Context, slug string, actor *domain.Identity, email string) error {
	list, err := s.store.GetListBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := domain.RequireCapability(list, actor, domain.CapInvite); err != nil {
		return err
	}

	if err := s.store.RemoveCollaborator(ctx, list.ID, email); err != nil {
		return err
	}

	rec, err := s.ledger.Record(ctx, list.ID, actor, domain.ActionCollaboratorRemove,
		domain.CollaboratorRemovedDetails{Email: email})
	if err != nil {
		return err
	}
	s.publisher.ListUpdated(ctx, list.ID, domain.ActionCollaboratorRemove)
	s.publisher.ActivityCreated(ctx, rec)
	return nil
}

func (s *Service) entryInList(ctx context.Context, slug, urlID string) (*domain.List, *domain.UrlEntry, error) {
	list, err := s.store.GetListBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	entry, err := s.store.GetEntry(ctx, urlID)
	if err != nil {
		return nil, nil, err
	}
	if entry.ListID != list.ID || entry.Archived {
		return nil, nil, domain.ErrNotFound
	}
	return list, entry, nil
}

// uniqueSlug derives a URL-safe slug from the title, suffixing on
// collision.
func (s *Service) uniqueSlug(ctx context.Context, title string) string {
	base := slugify(title)
	if base == "" {
		base = "list"
	}
	if _, err := s.store.GetListBySlug(ctx, base); errors.Is(err, domain.ErrNotFound) {
		return base
	}
	return base + "-" + uuid.NewString()[:8]
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
