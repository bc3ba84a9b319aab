package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"research-repository-api/models"
	"research-repository-api/services"
)

// MemoryStore keeps users and papers in process. It backs DB_DRIVER=memory
// and the workflow tests.
type MemoryStore struct {
	mu        sync.RWMutex
	papers    map[uint]models.Paper
	users     map[uint]models.User
	emails    map[string]uint // email -> user ID
	nextPaper uint
	nextUser  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		papers: make(map[uint]models.Paper),
		users:  make(map[uint]models.User),
		emails: make(map[string]uint),
	}
}

func (m *MemoryStore) CreatePaper(_ context.Context, paper *models.Paper) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPaper++
	paper.ID = m.nextPaper
	now := time.Now()
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = now
	}
	if paper.UpdatedAt.IsZero() {
		paper.UpdatedAt = paper.CreatedAt
	}
	if paper.Status == "" {
		paper.Status = models.PaperStatusPending
	}
	stored := *paper
	stored.Owner = nil
	m.papers[paper.ID] = stored
	return nil
}

// ListPapers applies filter.Matches and sorts newest first, mirroring the
// SQL rendering of the same filter.
func (m *MemoryStore) ListPapers(_ context.Context, filter services.PaperFilter) ([]models.Paper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]models.Paper, 0, len(m.papers))
	for _, p := range m.papers {
		if !filter.Matches(p) {
			continue
		}
		if owner, ok := m.users[p.UploadedBy]; ok {
			owner.Password = ""
			p.Owner = &owner
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})
	return res, nil
}

func (m *MemoryStore) FindPaper(_ context.Context, id uint) (models.Paper, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.papers[id]
	return p, ok, nil
}

func (m *MemoryStore) TransitionStatus(_ context.Context, id uint, from, to models.PaperStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.papers[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = at
	m.papers[id] = p
	return true, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.emails[user.Email]; taken {
		return services.ErrEmailTaken
	}
	m.nextUser++
	user.ID = m.nextUser
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = *user
	m.emails[user.Email] = user.ID
	return nil
}

func (m *MemoryStore) FindUserByID(_ context.Context, id uint) (models.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (models.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[email]
	if !ok {
		return models.User{}, false, nil
	}
	return m.users[id], true, nil
}

// DeleteUser removes an account; papers keep their owner reference.
func (m *MemoryStore) DeleteUser(id uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		delete(m.emails, u.Email)
		delete(m.users, id)
	}
}
