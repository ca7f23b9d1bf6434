package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-engine/internal/batch"
	"github.com/sells-group/lead-engine/internal/consensus"
	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/persona"
	"github.com/sells-group/lead-engine/internal/provider"
	"github.com/sells-group/lead-engine/internal/store"
	"github.com/sells-group/lead-engine/internal/tier"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	_, err = persona.NewService(st).EnsureDefaults(context.Background())
	require.NoError(t, err)
	return st
}

func mockReconciler() *consensus.Reconciler {
	return consensus.New(consensus.Config{MockMode: true}, nil, provider.NewSeededMock(7), nil)
}

func newTestPipeline(t *testing.T, st store.Store, rec Reconciler) (*Pipeline, *batch.Orchestrator) {
	t.Helper()
	orch := batch.NewOrchestrator(2, batch.WithStatusWriter(NewStatusWriter(st)))
	return New(st, rec, orch), orch
}

func seedContacts(t *testing.T, st store.Store, event string, names ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(names))
	for _, n := range names {
		c := &model.Contact{EventID: event, Name: n, Company: n + " Corp", Title: "CTO", Email: "x@" + n + ".example"}
		require.NoError(t, st.CreateContact(context.Background(), c))
		ids = append(ids, c.ID)
	}
	return ids
}

type reconcilerFunc func(ctx context.Context, id provider.Identity) (*consensus.Outcome, error)

func (f reconcilerFunc) Reconcile(ctx context.Context, id provider.Identity) (*consensus.Outcome, error) {
	return f(ctx, id)
}

type failingStore struct {
	store.Store
	saveErr error
}

func (s *failingStore) SaveProfile(_ context.Context, _ string, _ *model.EnrichedCompany) error {
	return s.saveErr
}

func TestQualify_PersistsEverything(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p, _ := newTestPipeline(t, st, mockReconciler())
	ids := seedContacts(t, st, "ev1", "Acme")

	run, err := p.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, run.Personas(), len(persona.Defaults()))

	q, err := run.Qualify(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, q.BestMatch)
	assert.Equal(t, model.SourceMock, q.Profile.EnrichmentSource)
	assert.Equal(t, tier.ForMatch(q.BestMatch), q.Profile.Tier)
	assert.Len(t, q.Matches, len(persona.Defaults()))
	assert.Equal(t, ids[0], q.MEDDIC.BadgeScanID)

	stored, err := p.Qualification(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, stored.Profile)
	assert.Equal(t, q.Profile.Tier, stored.Profile.Tier)
	assert.Len(t, stored.Matches, len(q.Matches))
	require.NotNil(t, stored.MEDDIC)
	assert.InDelta(t, q.MEDDIC.OverallScore, stored.MEDDIC.OverallScore, 0.001)
	assert.Equal(t, q.BestMatch.PersonaID, stored.BestMatch.PersonaID)
}

func TestQualify_MissingContactIsItemError(t *testing.T) {
	st := newTestStore(t)
	p, _ := newTestPipeline(t, st, mockReconciler())
	run, err := p.Snapshot(context.Background())
	require.NoError(t, err)

	_, err = run.Qualify(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, batch.IsFatal(err))
}

func TestQualify_StoreFailureIsFatal(t *testing.T) {
	st := newTestStore(t)
	ids := seedContacts(t, st, "ev1", "Acme")
	p, _ := newTestPipeline(t, &failingStore{Store: st, saveErr: errors.New("disk I/O error")}, mockReconciler())
	run, err := p.Snapshot(context.Background())
	require.NoError(t, err)

	_, err = run.Qualify(context.Background(), ids[0])
	require.Error(t, err)
	assert.True(t, batch.IsFatal(err))
}

func TestSnapshot_IgnoresLaterPersonaEdits(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p, _ := newTestPipeline(t, st, mockReconciler())

	run, err := p.Snapshot(ctx)
	require.NoError(t, err)
	before := len(run.Personas())

	_, err = persona.NewService(st).Create(ctx, model.Persona{
		Name:     "Late",
		Criteria: model.PersonaCriteria{Industries: []string{"Software"}},
		Weights:  model.PersonaWeights{Industry: 1},
	})
	require.NoError(t, err)
	assert.Len(t, run.Personas(), before)
}

func TestEnrichContact(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p, _ := newTestPipeline(t, st, mockReconciler())
	ids := seedContacts(t, st, "ev1", "Globex")

	q, err := p.EnrichContact(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.EnrichmentCompleted, q.Contact.Status)
	assert.NotNil(t, q.Profile)
	assert.NotNil(t, q.MEDDIC)
}

func TestEnrichContact_NotFound(t *testing.T) {
	st := newTestStore(t)
	p, _ := newTestPipeline(t, st, mockReconciler())

	_, err := p.EnrichContact(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEnrichContact_FailureRecordedOnContact(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	rec := reconcilerFunc(func(context.Context, provider.Identity) (*consensus.Outcome, error) {
		return nil, errors.New("mock: enrich: context canceled")
	})
	p, _ := newTestPipeline(t, st, rec)
	ids := seedContacts(t, st, "ev1", "Initech")

	_, err := p.EnrichContact(ctx, ids[0])
	require.ErrorIs(t, err, ErrEnrichmentFailed)

	c, err := st.GetContact(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.EnrichmentFailed, c.Status)
	assert.Contains(t, c.StatusReason, "context canceled")
}

func TestStartBatch_EnrichesPendingContactsOfEvent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p, orch := newTestPipeline(t, st, mockReconciler())
	mgr := batch.NewManager(orch, time.Minute)

	ids := seedContacts(t, st, "ev1", "Acme", "Globex", "Initech")
	other := seedContacts(t, st, "ev2", "Umbrella")

	job, err := p.StartBatch(ctx, mgr, "ev1", false)
	require.NoError(t, err)
	<-job.Done()
	mgr.Wait()

	prog := job.Snapshot()
	assert.Equal(t, model.JobCompleted, prog.Status)
	assert.Equal(t, 3, prog.TotalItems)
	assert.Equal(t, 3, prog.SuccessfulItems)
	assert.Equal(t, 100, prog.PercentComplete)

	for _, id := range ids {
		c, err := st.GetContact(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.EnrichmentCompleted, c.Status)
	}
	c, err := st.GetContact(ctx, other[0])
	require.NoError(t, err)
	assert.Equal(t, model.EnrichmentPending, c.Status)

	// Completed contacts are skipped unless asked for.
	again, err := p.StartBatch(ctx, mgr, "ev1", false)
	require.NoError(t, err)
	<-again.Done()
	assert.Equal(t, 0, again.Snapshot().TotalItems)

	all, err := p.StartBatch(ctx, mgr, "ev1", true)
	require.NoError(t, err)
	<-all.Done()
	mgr.Wait()
	assert.Equal(t, 3, all.Snapshot().TotalItems)
}

func TestStartBatch_StoreFailureFailsJob(t *testing.T) {
	ctx := context.Background()
	base := newTestStore(t)
	seedContacts(t, base, "ev1", "Acme", "Globex", "Initech")
	st := &failingStore{Store: base, saveErr: errors.New("database is locked")}

	orch := batch.NewOrchestrator(1, batch.WithStatusWriter(NewStatusWriter(st)))
	p := New(st, mockReconciler(), orch)
	mgr := batch.NewManager(orch, time.Minute)

	job, err := p.StartBatch(ctx, mgr, "ev1", false)
	require.NoError(t, err)
	<-job.Done()
	mgr.Wait()

	prog := job.Snapshot()
	assert.Equal(t, model.JobFailed, prog.Status)
	assert.Equal(t, 1, prog.ProcessedItems)
	assert.Contains(t, prog.Error, "database is locked")
}

func TestStatusWriter_IgnoresDeletedContact(t *testing.T) {
	st := newTestStore(t)
	w := NewStatusWriter(st)
	err := w.SetItemStatus(context.Background(), batch.Item{ID: "gone"}, model.EnrichmentCompleted, "")
	assert.NoError(t, err)
}
