package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-engine/internal/batch"
	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/store"
)

// EventSource lists an event's contacts that still need enrichment: PENDING
// and FAILED, or every contact when includeCompleted is set. An empty
// eventID selects contacts of all events.
func EventSource(st store.Store, eventID string, includeCompleted bool) batch.Source {
	return batch.SourceFunc(func(ctx context.Context) ([]batch.Item, error) {
		filter := store.ContactFilter{EventID: eventID}
		if !includeCompleted {
			filter.Statuses = []model.EnrichmentStatus{model.EnrichmentPending, model.EnrichmentFailed}
		}
		contacts, err := st.ListContacts(ctx, filter)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: list contacts for event %q", eventID)
		}
		items := make([]batch.Item, len(contacts))
		for i, c := range contacts {
			items[i] = batch.Item{ID: c.ID, Label: c.Label()}
		}
		return items, nil
	})
}

type statusWriter struct {
	store store.Store
}

// NewStatusWriter records batch outcomes on the contact rows.
func NewStatusWriter(st store.Store) batch.StatusWriter {
	return &statusWriter{store: st}
}

func (w *statusWriter) SetItemStatus(ctx context.Context, item batch.Item, status model.EnrichmentStatus, reason string) error {
	err := w.store.UpdateContactStatus(ctx, item.ID, status, reason)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted mid-run; nothing left to record on.
		return nil
	}
	return err
}
