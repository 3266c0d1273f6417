// Package researchtest provides in-memory collaborators for exercising the
// research engine without a database, a knowledge graph or the network.
package researchtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/pkg/research"

	"github.com/google/uuid"
)

// MemoryStore is a research.Persistence backed by maps.
type MemoryStore struct {
	mu         sync.Mutex
	topics     map[uuid.UUID]*entity.Topic
	findings   map[uuid.UUID][]*entity.Finding
	MaxActive  int
	Now        func() time.Time
	Touches    map[uuid.UUID]int
	SaveCalls  int
	FailOwners map[uuid.UUID]error
}

var _ research.Persistence = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		topics:     make(map[uuid.UUID]*entity.Topic),
		findings:   make(map[uuid.UUID][]*entity.Finding),
		Touches:    make(map[uuid.UUID]int),
		FailOwners: make(map[uuid.UUID]error),
		Now:        time.Now,
	}
}

// Put inserts or replaces a topic as-is and returns the stored copy's id.
func (m *MemoryStore) Put(t *entity.Topic) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Id == uuid.Nil {
		t.Id = uuid.New()
	}
	if t.ExpansionStatus == "" {
		t.ExpansionStatus = entity.ExpansionStatusActive
	}
	if t.StalenessCoefficient == 0 {
		t.StalenessCoefficient = 1
	}
	m.topics[t.Id] = t.Clone()
	return t.Id
}

// PutFinding seeds a prior finding for a topic.
func (m *MemoryStore) PutFinding(f *entity.Finding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Id == uuid.Nil {
		f.Id = uuid.New()
	}
	m.findings[f.TopicId] = append(m.findings[f.TopicId], f)
}

// Topic returns a copy of the stored topic, or nil.
func (m *MemoryStore) Topic(id uuid.UUID) *entity.Topic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.topics[id].Clone()
}

// Findings returns the stored findings of a topic, oldest first.
func (m *MemoryStore) Findings(topicID uuid.UUID) []*entity.Finding {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.Finding(nil), m.findings[topicID]...)
}

// TopicsOf returns copies of every topic of an owner ordered by creation.
func (m *MemoryStore) TopicsOf(ownerID uuid.UUID) []*entity.Topic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ownerTopics(ownerID, func(*entity.Topic) bool { return true })
}

func (m *MemoryStore) ownerTopics(ownerID uuid.UUID, keep func(*entity.Topic) bool) []*entity.Topic {
	var out []*entity.Topic
	for _, t := range m.topics {
		if t.OwnerId == ownerID && keep(t) {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (m *MemoryStore) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var owners []uuid.UUID
	for _, t := range m.topics {
		if t.ExpansionStatus == entity.ExpansionStatusRetired || seen[t.OwnerId] {
			continue
		}
		seen[t.OwnerId] = true
		owners = append(owners, t.OwnerId)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].String() < owners[j].String() })
	return owners, nil
}

func (m *MemoryStore) GetActiveTopics(ctx context.Context, ownerID uuid.UUID) ([]*entity.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailOwners[ownerID]; err != nil {
		return nil, err
	}
	return m.ownerTopics(ownerID, func(t *entity.Topic) bool {
		return t.IsActiveResearch && t.ExpansionStatus != entity.ExpansionStatusRetired
	}), nil
}

func (m *MemoryStore) GetAllTopics(ctx context.Context, ownerID uuid.UUID) ([]*entity.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailOwners[ownerID]; err != nil {
		return nil, err
	}
	return m.ownerTopics(ownerID, func(*entity.Topic) bool { return true }), nil
}

func (m *MemoryStore) SaveTopics(ctx context.Context, ownerID uuid.UUID, topics []*entity.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	for _, t := range topics {
		if t.OwnerId != ownerID {
			continue
		}
		m.topics[t.Id] = t.Clone()
	}
	return nil
}

func (m *MemoryStore) CreateTopic(ctx context.Context, ownerID uuid.UUID, nt research.NewTopic) (*entity.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := research.NormalizeName(nt.Name)
	for _, t := range m.topics {
		if t.OwnerId == ownerID && research.NormalizeName(t.Name) == key {
			return nil, research.ErrDuplicateTopic
		}
	}

	now := m.Now()
	t := &entity.Topic{
		Id:                    uuid.New(),
		OwnerId:               ownerID,
		ParentId:              nt.ParentID,
		Name:                  nt.Name,
		Description:           nt.Description,
		ConfidenceScore:       nt.Confidence,
		IsActiveResearch:      nt.Active,
		IsExpansion:           nt.IsExpansion,
		ExpansionDepth:        nt.Depth,
		ChildExpansionEnabled: !nt.IsExpansion,
		ExpansionStatus:       entity.ExpansionStatusActive,
		LastEvaluatedAt:       now,
		StalenessCoefficient:  1,
		CreatedAt:             now,
	}
	m.topics[t.Id] = t
	return t.Clone(), nil
}

func (m *MemoryStore) GetRecentFindings(ctx context.Context, topicID uuid.UUID, limit int) ([]*entity.Finding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.findings[topicID]
	out := make([]*entity.Finding, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *MemoryStore) StoreFinding(ctx context.Context, topicID uuid.UUID, f *entity.Finding) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.topics[topicID]; !ok {
		return false, nil
	}
	if f.Id == uuid.Nil {
		f.Id = uuid.New()
	}
	f.TopicId = topicID
	m.findings[topicID] = append(m.findings[topicID], f)
	return true, nil
}

func (m *MemoryStore) UpdateTopicLastResearched(ctx context.Context, topicID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[topicID]
	if !ok {
		return nil
	}
	at = at.UTC()
	t.LastResearched = &at
	m.Touches[topicID]++
	return nil
}

func (m *MemoryStore) CanActivateTopic(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MaxActive <= 0 {
		return true, nil
	}
	active := 0
	for _, t := range m.topics {
		if t.OwnerId == ownerID && t.IsActiveResearch && t.ExpansionStatus != entity.ExpansionStatusRetired {
			active++
		}
	}
	return active < m.MaxActive, nil
}
