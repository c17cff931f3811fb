// Package reconcile merges freshly fetched TickTick tasks into the local list.
package reconcile

import "tomanage/internal/models"

// Merge builds the new local list from a complete external fetch.
//
// External tasks come first, in fetch order. An external task that matches a
// local task by external id keeps the local id and takes every other field
// from the external copy. Local tasks without an external id follow, untouched.
// Synced local tasks missing from the fetch are dropped; the external service
// is authoritative for them.
func Merge(local, external []models.Task) []models.Task {
	localIDs := make(map[string]string, len(local))
	for _, t := range local {
		if t.ExternalID != "" {
			localIDs[t.ExternalID] = t.ID
		}
	}

	merged := make([]models.Task, 0, len(external)+len(local))
	seen := make(map[string]bool, len(external))
	for _, ext := range external {
		if ext.ExternalID == "" || seen[ext.ExternalID] {
			continue
		}
		seen[ext.ExternalID] = true

		t := ext
		t.Synced = true
		if id, ok := localIDs[ext.ExternalID]; ok {
			t.ID = id
		} else {
			t.ID = ext.ExternalID
		}
		merged = append(merged, t)
	}

	for _, t := range local {
		if t.ExternalID == "" {
			merged = append(merged, t)
		}
	}
	return merged
}
