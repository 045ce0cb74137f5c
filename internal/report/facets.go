package report

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amcchord/slideReports/internal/model"
)

// SnapshotFacets is the derived storage taxonomy of one snapshot. The
// synced record carries two JSON arrays, locations and deletions, and
// every consumer works from these flags instead of re-parsing them.
type SnapshotFacets struct {
	Local            bool
	Cloud            bool
	Deleted          bool
	DeletedRetention bool
	DeletedManual    bool
	DeletedOther     bool
}

// Active reports whether the snapshot still exists somewhere.
func (f SnapshotFacets) Active() bool { return !f.Deleted }

// ClassifySnapshot derives facets from a snapshot's locations and
// deletions JSON. A snapshot counts as deleted when its deletions
// array is non-empty, regardless of the entry types. Deletion entries
// with a type other than "retention" or "manual" land in the other
// bucket, so one snapshot can occupy several deletion buckets at
// once. The two arrays are parsed independently: malformed JSON in
// one leaves that side's flags false with an advisory error while the
// other side is still classified, and callers keep aggregating.
func ClassifySnapshot(snap model.Snapshot) (SnapshotFacets, error) {
	var facets SnapshotFacets
	var errs []error

	if snap.Locations != nil && *snap.Locations != "" {
		var locations []map[string]any
		if err := json.Unmarshal([]byte(*snap.Locations), &locations); err != nil {
			errs = append(errs, fmt.Errorf("classify snapshot %s: parse locations: %w", snap.SnapshotID, err))
		} else {
			for _, loc := range locations {
				switch loc["type"] {
				case "local":
					facets.Local = true
				case "cloud":
					facets.Cloud = true
				}
			}
		}
	}

	if snap.Deletions != nil && *snap.Deletions != "" {
		var deletions []json.RawMessage
		if err := json.Unmarshal([]byte(*snap.Deletions), &deletions); err != nil {
			errs = append(errs, fmt.Errorf("classify snapshot %s: parse deletions: %w", snap.SnapshotID, err))
		} else {
			facets.Deleted = len(deletions) > 0
			for _, raw := range deletions {
				var entry map[string]any
				if err := json.Unmarshal(raw, &entry); err != nil {
					continue
				}
				switch entry["type"] {
				case "retention":
					facets.DeletedRetention = true
				case "manual":
					facets.DeletedManual = true
				default:
					facets.DeletedOther = true
				}
			}
		}
	}

	return facets, errors.Join(errs...)
}
