package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
)

// Memory is an in-process Repository. Contents are lost on exit.
type Memory struct {
	mu           sync.RWMutex
	combinations map[model.CombinationKey]*model.Combination
	order        []model.CombinationKey
}

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		combinations: make(map[model.CombinationKey]*model.Combination),
	}
}

func (m *Memory) GetCombination(ctx context.Context, key model.CombinationKey) (*model.Combination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.combinations[key]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (m *Memory) PutCombination(ctx context.Context, c *model.Combination) error {
	if err := validateCombination(c); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.combinations[c.Key]; exists {
		return goerr.Wrap(ErrAlreadyExists, "failed to put combination", goerr.V("key", c.Key))
	}

	copied := *c
	m.combinations[c.Key] = &copied
	m.order = append(m.order, c.Key)
	return nil
}

func (m *Memory) ListCombinations(ctx context.Context, offset, limit int) ([]*model.Combination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*model.Combination, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		copied := *m.combinations[m.order[i]]
		all = append(all, &copied)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []*model.Combination{}, nil
	}
	end := offset + normalizeLimit(limit)
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *Memory) Close() error {
	return nil
}
