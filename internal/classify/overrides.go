package classify

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/fixedassets/depflow/internal/tables"
)

var errMissingOverrideKey = errors.New("override entry needs an external_id or category key")

// OverrideEntry is one human-entered classification override, keyed by an
// external asset identifier or a client category name.
type OverrideEntry struct {
	ExternalID string `json:"external_id" mapstructure:"external_id"`
	Category   string `json:"category" mapstructure:"category"`
	ClassName  string `json:"class_name" mapstructure:"class_name"`
	Reason     string `json:"reason" mapstructure:"reason"`
}

// OverrideRegistry holds explicit classification overrides, the highest
// precedence tier. Safe for concurrent lookups.
type OverrideRegistry struct {
	byExternalID map[string]OverrideEntry
	byCategory   map[string]OverrideEntry
	logger       *slog.Logger
	mu           sync.RWMutex
}

// NewOverrideRegistry builds a registry from structured entries. Malformed
// entries are skipped with a logged warning, never crashing the batch.
func NewOverrideRegistry(entries []OverrideEntry, logger *slog.Logger) *OverrideRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &OverrideRegistry{
		byExternalID: make(map[string]OverrideEntry),
		byCategory:   make(map[string]OverrideEntry),
		logger:       logger,
	}
	for _, e := range entries {
		if err := r.add(e); err != nil {
			logger.Warn("skipping malformed override entry",
				"external_id", e.ExternalID,
				"category", e.Category,
				"error", err)
		}
	}
	return r
}

func (r *OverrideRegistry) add(e OverrideEntry) error {
	if _, err := tables.ClassByName(e.ClassName); err != nil {
		return err
	}
	if e.ExternalID == "" && e.Category == "" {
		return errMissingOverrideKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ExternalID != "" {
		r.byExternalID[strings.ToLower(e.ExternalID)] = e
	}
	if e.Category != "" {
		r.byCategory[strings.ToLower(e.Category)] = e
	}
	return nil
}

// Lookup finds an override for a record, external identifier first, then
// client category.
func (r *OverrideRegistry) Lookup(externalID, category string) (OverrideEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if externalID != "" {
		if e, ok := r.byExternalID[strings.ToLower(externalID)]; ok {
			return e, true
		}
	}
	if category != "" {
		if e, ok := r.byCategory[strings.ToLower(category)]; ok {
			return e, true
		}
	}
	return OverrideEntry{}, false
}

// Len returns the number of usable override keys.
func (r *OverrideRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byExternalID) + len(r.byCategory)
}
