package memory

import (
	"context"
	"sort"
	"sync"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// AlertStore is an in-memory implementation of storage.AlertStore.
type AlertStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Alert // keyed by alert_id
}

// NewAlertStore creates a new in-memory alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{
		data: make(map[string]*domain.Alert),
	}
}

// Insert adds a new alert. Returns ErrDuplicateKey if alert_id exists.
func (s *AlertStore) Insert(_ context.Context, a *domain.Alert) error {
	if a == nil || a.AlertID == "" || a.Mint == "" || !a.Kind.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.AlertID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[a.AlertID] = copyAlert(a)
	return nil
}

// GetByID retrieves an alert by its ID. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByID(_ context.Context, alertID string) (*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[alertID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyAlert(a), nil
}

// GetByMint retrieves all alerts for a mint, ordered by trigger time ASC.
func (s *AlertStore) GetByMint(_ context.Context, mint string) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Alert
	for _, a := range s.data {
		if a.Mint == mint {
			result = append(result, copyAlert(a))
		}
	}

	sortAlerts(result)
	return result, nil
}

// GetByKind retrieves all alerts of a kind, ordered by trigger time ASC.
func (s *AlertStore) GetByKind(_ context.Context, kind domain.AlertKind) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Alert
	for _, a := range s.data {
		if a.Kind == kind {
			result = append(result, copyAlert(a))
		}
	}

	sortAlerts(result)
	return result, nil
}

// copyAlert deep-copies the feature map and criteria slice so callers
// cannot mutate stored state.
func copyAlert(a *domain.Alert) *domain.Alert {
	alertCopy := *a
	if a.Features != nil {
		alertCopy.Features = make(map[string]float64, len(a.Features))
		for k, v := range a.Features {
			alertCopy.Features[k] = v
		}
	}
	if a.Criteria != nil {
		alertCopy.Criteria = make([]domain.CriterionResult, len(a.Criteria))
		copy(alertCopy.Criteria, a.Criteria)
	}
	return &alertCopy
}

func sortAlerts(alerts []*domain.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].TriggeredAt != alerts[j].TriggeredAt {
			return alerts[i].TriggeredAt < alerts[j].TriggeredAt
		}
		return alerts[i].AlertID < alerts[j].AlertID
	})
}

var _ storage.AlertStore = (*AlertStore)(nil)
