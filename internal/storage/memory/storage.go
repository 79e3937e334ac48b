package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/memorygame/internal/model"
	"github.com/mcoot/memorygame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	identities     map[int64]*model.Identity
	displayNameIdx map[string]int64
	scores         map[int64]*model.ScoreRecord

	lastIdentityID int64
	lastScoreID    int64
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		identities:     make(map[int64]*model.Identity),
		displayNameIdx: make(map[string]int64),
		scores:         make(map[int64]*model.ScoreRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}

// Identity operations

func (s *Storage) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.displayNameIdx[identity.DisplayName]; taken {
		return model.ErrDisplayNameTaken
	}

	s.lastIdentityID++
	identity.ID = s.lastIdentityID

	stored := *identity
	s.identities[stored.ID] = &stored
	s.displayNameIdx[stored.DisplayName] = stored.ID
	return nil
}

func (s *Storage) GetIdentity(ctx context.Context, id int64) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	out := *identity
	return &out, nil
}

func (s *Storage) GetIdentityByName(ctx context.Context, displayName string) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.displayNameIdx[displayName]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	out := *s.identities[id]
	return &out, nil
}

func (s *Storage) DeleteIdentity(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return model.ErrIdentityNotFound
	}

	delete(s.displayNameIdx, identity.DisplayName)
	delete(s.identities, id)

	// Cascade to attributed scores; guest scores have no IdentityID and survive
	for scoreID, record := range s.scores {
		if record.IdentityID != nil && *record.IdentityID == id {
			delete(s.scores, scoreID)
		}
	}
	return nil
}

// Score operations

func (s *Storage) InsertScore(ctx context.Context, record *model.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.IdentityID != nil {
		if _, ok := s.identities[*record.IdentityID]; !ok {
			return model.ErrIdentityNotFound
		}
	}

	s.lastScoreID++
	record.ID = s.lastScoreID

	s.scores[record.ID] = cloneRecord(record)
	return nil
}

func (s *Storage) TopScores(ctx context.Context, n int) ([]model.RankedScore, error) {
	if n <= 0 {
		return nil, model.ErrInvalidScoreLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*model.ScoreRecord, 0, len(s.scores))
	for _, record := range s.scores {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return model.LessRanked(records[i], records[j])
	})

	if len(records) > n {
		records = records[:n]
	}

	ranked := make([]model.RankedScore, 0, len(records))
	for i, record := range records {
		entry := model.RankedScore{
			ScoreRecord:  *cloneRecord(record),
			Rank:         i + 1,
			ResolvedName: record.DisplayName,
		}
		if record.IdentityID != nil {
			if identity, ok := s.identities[*record.IdentityID]; ok {
				entry.ResolvedName = identity.DisplayName
			}
		}
		ranked = append(ranked, entry)
	}
	return ranked, nil
}

func cloneRecord(record *model.ScoreRecord) *model.ScoreRecord {
	out := *record
	if record.IdentityID != nil {
		identityID := *record.IdentityID
		out.IdentityID = &identityID
	}
	return &out
}
