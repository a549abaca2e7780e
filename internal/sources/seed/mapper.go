package seed

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linkboard/linkboard/internal/domain"
)

// Mapper converts seed specs to domain lists and entries
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// SeededList pairs a list with its entries in seed order.
type SeededList struct {
	List    *domain.List
	Entries []*domain.UrlEntry
}

// MapLists converts a seed file to domain shapes. Specs without a slug,
// title or owner are rejected: a seed file is operator input and typos
// should fail loudly.
func (m *Mapper) MapLists(file *File) ([]SeededList, error) {
	if file == nil || len(file.Lists) == 0 {
		return nil, fmt.Errorf("no lists found in seed file")
	}

	now := time.Now().UTC()
	out := make([]SeededList, 0, len(file.Lists))

	for i, spec := range file.Lists {
		if spec.Slug == "" || spec.Title == "" || spec.Owner == "" {
			return nil, fmt.Errorf("list %d: slug, title and owner are required", i)
		}

		roles := make(map[string]domain.Role, len(spec.Collaborators))
		for _, c := range spec.Collaborators {
			role, err := parseRole(c.Role)
			if err != nil {
				return nil, fmt.Errorf("list %q: collaborator %q: %w", spec.Slug, c.Email, err)
			}
			roles[c.Email] = role
		}

		list := &domain.List{
			ID:          uuid.NewString(),
			Slug:        spec.Slug,
			Title:       spec.Title,
			Description: spec.Description,
			Public:      spec.Public,
			OwnerID:     spec.Owner,
			Roles:       roles,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		entries := make([]*domain.UrlEntry, 0, len(spec.URLs))
		for j, u := range spec.URLs {
			if u.Address == "" {
				return nil, fmt.Errorf("list %q: url %d: address is required", spec.Slug, j)
			}
			pos := j
			entries = append(entries, &domain.UrlEntry{
				ID:          uuid.NewString(),
				ListID:      list.ID,
				Address:     u.Address,
				Title:       u.Title,
				Description: u.Description,
				Tags:        u.Tags,
				Category:    u.Category,
				Health:      domain.HealthUnknown,
				Position:    &pos,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}

		out = append(out, SeededList{List: list, Entries: entries})
	}

	return out, nil
}

func parseRole(raw string) (domain.Role, error) {
	switch domain.Role(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.RoleEditor:
		return domain.RoleEditor, nil
	case domain.RoleViewer:
		return domain.RoleViewer, nil
	}
	return "", fmt.Errorf("role must be editor or viewer, got %q", raw)
}
