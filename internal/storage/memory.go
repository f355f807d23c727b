package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/spigell/interviewer/internal/interview"
)

// MemoryStore keeps records in process memory. Records are stored as JSON so
// callers never share state with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	vacancies  map[string][]byte
	candidates map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vacancies:  make(map[string][]byte),
		candidates: make(map[string]map[string][]byte),
	}
}

func (m *MemoryStore) SaveVacancy(_ context.Context, v *interview.Vacancy) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal vacancy %s: %w", v.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.vacancies[v.ID] = data
	return nil
}

func (m *MemoryStore) GetVacancy(_ context.Context, id string) (*interview.Vacancy, error) {
	m.mu.RLock()
	data, ok := m.vacancies[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vacancy %s: %w", id, ErrNotFound)
	}

	var v interview.Vacancy
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal vacancy %s: %w", id, err)
	}
	return &v, nil
}

func (m *MemoryStore) ListVacancies(ctx context.Context) ([]*interview.Vacancy, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.vacancies))
	for id := range m.vacancies {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	out := make([]*interview.Vacancy, 0, len(ids))
	for _, id := range ids {
		v, err := m.GetVacancy(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	sortVacancies(out)
	return out, nil
}

func (m *MemoryStore) SaveCandidate(_ context.Context, c *interview.CandidateResult) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal candidate %s: %w", c.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vacancies[c.VacancyID]; !ok {
		return fmt.Errorf("vacancy %s: %w", c.VacancyID, ErrNotFound)
	}
	if m.candidates[c.VacancyID] == nil {
		m.candidates[c.VacancyID] = make(map[string][]byte)
	}
	m.candidates[c.VacancyID][c.ID] = data
	return nil
}

func (m *MemoryStore) GetCandidate(_ context.Context, vacancyID, candidateID string) (*interview.CandidateResult, error) {
	m.mu.RLock()
	data, ok := m.candidates[vacancyID][candidateID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("candidate %s: %w", candidateID, ErrNotFound)
	}

	var c interview.CandidateResult
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal candidate %s: %w", candidateID, err)
	}
	return &c, nil
}

func (m *MemoryStore) ListCandidates(_ context.Context, vacancyID string) ([]*interview.CandidateResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.vacancies[vacancyID]; !ok {
		return nil, fmt.Errorf("vacancy %s: %w", vacancyID, ErrNotFound)
	}

	out := make([]*interview.CandidateResult, 0, len(m.candidates[vacancyID]))
	for id, data := range m.candidates[vacancyID] {
		var c interview.CandidateResult
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshal candidate %s: %w", id, err)
		}
		out = append(out, &c)
	}
	sortCandidates(out)
	return out, nil
}

func sortVacancies(vs []*interview.Vacancy) {
	sort.Slice(vs, func(i, j int) bool {
		if !vs[i].CreatedAt.Equal(vs[j].CreatedAt) {
			return vs[i].CreatedAt.Before(vs[j].CreatedAt)
		}
		return vs[i].ID < vs[j].ID
	})
}

func sortCandidates(cs []*interview.CandidateResult) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
}
