package projects

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/semlayer/semlayer/core/domain"
)

// MemoryStore serves projects declared in the configuration file
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]domain.Project
}

// NewMemoryStore indexes projects by UUID
func NewMemoryStore(projects []domain.Project) (*MemoryStore, error) {
	m := &MemoryStore{projects: make(map[string]domain.Project, len(projects))}
	for _, p := range projects {
		if p.UUID == "" {
			return nil, fmt.Errorf("project %q has no uuid", p.Name)
		}
		if _, exists := m.projects[p.UUID]; exists {
			return nil, fmt.Errorf("duplicate project uuid %s", p.UUID)
		}
		m.projects[p.UUID] = p
	}
	return m, nil
}

// Get returns a copy of the project
func (m *MemoryStore) Get(_ context.Context, projectUUID string) (*domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[projectUUID]
	if !ok {
		return nil, projectNotFound(projectUUID)
	}
	return &p, nil
}

// List returns the organization's projects sorted by name
func (m *MemoryStore) List(_ context.Context, organizationUUID string) ([]domain.ProjectSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.ProjectSummary{}
	for _, p := range m.projects {
		if p.OrganizationUUID == organizationUUID {
			out = append(out, p.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Replace swaps the project set, used on configuration reload
func (m *MemoryStore) Replace(projects []domain.Project) error {
	next, err := NewMemoryStore(projects)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.projects = next.projects
	m.mu.Unlock()
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error { return nil }
