package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jsrothwell/job-monitor-sub000/internal/model"
)

// Memory is an in-process Store. It backs tests and small single-node
// deployments that do not want a database.
type Memory struct {
	mu        sync.Mutex
	companies map[string]*model.Company
	// postings[companyID][fingerprint]
	postings map[string]map[string]*model.JobPosting
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		companies: make(map[string]*model.Company),
		postings:  make(map[string]map[string]*model.JobPosting),
	}
}

// AddCompany registers a company, assigning an id when c.ID is empty.
func (m *Memory) AddCompany(c model.Company) model.Company {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.companies[c.ID] = &c
	return c
}

// PostingsFor returns a snapshot of every posting stored for the company.
func (m *Memory) PostingsFor(companyID string) []model.JobPosting {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.JobPosting
	for _, p := range m.postings[companyID] {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out
}

func (m *Memory) FindByFingerprint(_ context.Context, companyID, fingerprint string) (*model.JobPosting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.postings[companyID][fingerprint]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) Upsert(_ context.Context, p model.JobPosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byFp := m.postings[p.CompanyID]
	if byFp == nil {
		byFp = make(map[string]*model.JobPosting)
		m.postings[p.CompanyID] = byFp
	}
	if cur, ok := byFp[p.Fingerprint]; ok {
		cur.LastSeen = p.LastSeen
		cur.Status = model.StatusExisting
		return nil
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	byFp[p.Fingerprint] = &p
	return nil
}

func (m *Memory) MarkRemoved(_ context.Context, companyID string, keep map[string]struct{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for fp, p := range m.postings[companyID] {
		if _, kept := keep[fp]; kept {
			continue
		}
		if p.Status != model.StatusRemoved {
			p.Status = model.StatusRemoved
			n++
		}
	}
	return n, nil
}

func (m *Memory) TouchLastChecked(_ context.Context, companyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.companies[companyID]; ok {
		now := time.Now().UTC()
		c.LastChecked = &now
	}
	return nil
}

func (m *Memory) ListActiveCompanies(_ context.Context, hint OrderHint) ([]model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Company
	for _, c := range m.companies {
		if c.Active {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if hint == OrderLeastRecentlyChecked {
			li, lj := out[i].LastChecked, out[j].LastChecked
			switch {
			case li == nil && lj != nil:
				return true
			case li != nil && lj == nil:
				return false
			case li != nil && lj != nil && !li.Equal(*lj):
				return li.Before(*lj)
			}
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
