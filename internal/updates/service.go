package updates

import (
	"context"
	"sync"
	"time"

	"github.com/linkboard/linkboard/internal/domain"
	"github.com/linkboard/linkboard/internal/logger"
)

// Store is the persistence surface the unified read needs.
type Store interface {
	GetListBySlug(ctx context.Context, slug string) (*domain.List, error)
	EntriesForList(ctx context.Context, listID string) ([]*domain.UrlEntry, error)
	SetPositions(ctx context.Context, listID string, positions map[string]int) error
	ActivitiesForList(ctx context.Context, listID string, limit int) ([]*domain.ActivityRecord, error)
	CollaboratorsForList(ctx context.Context, listID string) ([]domain.Collaborator, error)
}

// ClickCount pairs an entry id with its counter for cheap client patches.
type ClickCount struct {
	URLID  string `json:"urlId"`
	Clicks int64  `json:"clicks"`
}

// Update is the unified consistency payload: the one read path that is
// authoritative over any streamed signal.
type Update struct {
	List          *domain.List             `json:"list"`
	Entries       []*domain.UrlEntry       `json:"entries"`
	Activities    []*domain.ActivityRecord `json:"activities"`
	Collaborators []domain.Collaborator    `json:"collaborators"`

	// URLOrder is the ordered entry id list clients verify against.
	URLOrder []string `json:"urlOrder"`

	ClickCounts []ClickCount `json:"clickCounts"`
}

const (
	// DefaultActivityLimit caps the recent-activity slice of the payload.
	DefaultActivityLimit = 20

	persistTimeout = 10 * time.Second
)

// Service assembles the unified read in one pass.
type Service struct {
	store  Store
	logger logger.Logger
}

// New creates the unified read service.
func New(store Store, logging logger.Logger) *Service {
	return &Service{store: store, logger: logging}
}

// GetUpdate resolves the list, verifies access, normalizes entry order
// and assembles state, recent activity and the roster. Entry order is
// always position-derived; when lazy position assignment occurs the
// corrected positions are persisted asynchronously so the response is
// never blocked on the backfill.
func (s *Service) GetUpdate(ctx context.Context, slug string, identity *domain.Identity, activityLimit int) (*Update, error) {
	list, err := s.ResolveList(ctx, slug, identity)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.EntriesForList(ctx, list.ID)
	if err != nil {
		return nil, err
	}

	sorted, changed := domain.NormalizeOrder(entries)
	if changed {
		s.persistPositionsAsync(list.ID, sorted)
	}

	if activityLimit <= 0 {
		activityLimit = DefaultActivityLimit
	}

	// Activity and roster in parallel; either failing degrades that
	// field to empty rather than failing the whole response.
	var (
		wg         sync.WaitGroup
		activities []*domain.ActivityRecord
		roster     []domain.Collaborator
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		recs, err := s.store.ActivitiesForList(ctx, list.ID, activityLimit)
		if err != nil {
			s.logger.Warn("activity fetch failed, degrading to empty",
				logger.String("list_id", list.ID),
				logger.Error(err))
			return
		}
		activities = recs
	}()
	go func() {
		defer wg.Done()
		collabs, err := s.store.CollaboratorsForList(ctx, list.ID)
		if err != nil {
			s.logger.Warn("roster fetch failed, degrading to empty",
				logger.String("list_id", list.ID),
				logger.Error(err))
			return
		}
		roster = collabs
	}()
	wg.Wait()

	if activities == nil {
		activities = []*domain.ActivityRecord{}
	}
	if roster == nil {
		roster = []domain.Collaborator{}
	}

	clickCounts := make([]ClickCount, 0, len(sorted))
	for _, e := range sorted {
		clickCounts = append(clickCounts, ClickCount{URLID: e.ID, Clicks: e.Clicks})
	}

	return &Update{
		List:          list,
		Entries:       sorted,
		Activities:    activities,
		Collaborators: roster,
		URLOrder:      domain.OrderOf(sorted),
		ClickCounts:   clickCounts,
	}, nil
}

// ResolveList looks a list up by slug and verifies read access: public,
// or any resolvable role. The stream gateway uses the same gate.
func (s *Service) ResolveList(ctx context.Context, slug string, identity *domain.Identity) (*domain.List, error) {
	list, err := s.store.GetListBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !list.Public && domain.RoleFor(list, identity) == domain.RoleNone {
		return nil, domain.ErrUnauthorized
	}
	return list, nil
}

// persistPositionsAsync writes back lazily assigned positions without
// blocking the response. A background context detaches the write from
// the request lifetime.
func (s *Service) persistPositionsAsync(listID string, sorted []*domain.UrlEntry) {
	positions := make(map[string]int, len(sorted))
	for _, e := range sorted {
		if e.Position != nil {
			positions[e.ID] = *e.Position
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := s.store.SetPositions(ctx, listID, positions); err != nil {
			s.logger.Warn("position backfill failed, will retry on next read",
				logger.String("list_id", listID),
				logger.Error(err))
			return
		}
		s.logger.Debug("backfilled entry positions",
			logger.String("list_id", listID),
			logger.Int("count", len(positions)))
	}()
}
