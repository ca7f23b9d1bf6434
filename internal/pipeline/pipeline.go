// Package pipeline qualifies contact records: enrich the company, score it
// against every persona, classify the tier, compute MEDDIC and persist it all.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/batch"
	"github.com/sells-group/lead-engine/internal/consensus"
	"github.com/sells-group/lead-engine/internal/meddic"
	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/persona"
	"github.com/sells-group/lead-engine/internal/provider"
	"github.com/sells-group/lead-engine/internal/store"
	"github.com/sells-group/lead-engine/internal/tier"
)

// ErrEnrichmentFailed is returned by EnrichContact when the record could not
// be qualified. The reason is also stored on the contact.
var ErrEnrichmentFailed = eris.New("pipeline: enrichment failed")

// Reconciler produces a company profile for a contact identity.
type Reconciler interface {
	Reconcile(ctx context.Context, id provider.Identity) (*consensus.Outcome, error)
}

// Pipeline wires the enrichment and scoring stages to the store.
type Pipeline struct {
	store      store.Store
	reconciler Reconciler
	orch       *batch.Orchestrator
	now        func() time.Time
}

// New creates a pipeline. orch runs single-record enrichment and should be
// built with NewStatusWriter so outcomes land on the contact.
func New(st store.Store, rec Reconciler, orch *batch.Orchestrator) *Pipeline {
	return &Pipeline{
		store:      st,
		reconciler: rec,
		orch:       orch,
		now:        time.Now,
	}
}

// Run is a pipeline bound to the personas that existed when it was created.
// It implements batch.Processor.
type Run struct {
	p        *Pipeline
	personas []model.Persona
}

// Snapshot loads the active personas once. Persona edits made afterwards do
// not affect the returned run.
func (p *Pipeline) Snapshot(ctx context.Context) (*Run, error) {
	personas, err := p.store.ListPersonas(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load personas")
	}
	return &Run{p: p, personas: personas}, nil
}

// Personas returns the personas the run scores against.
func (r *Run) Personas() []model.Persona {
	return r.personas
}

// Process implements batch.Processor.
func (r *Run) Process(ctx context.Context, item batch.Item) error {
	_, err := r.Qualify(ctx, item.ID)
	return err
}

// Qualify runs every stage for one contact and persists the results. Store
// failures are job-fatal; everything else fails only this contact.
func (r *Run) Qualify(ctx context.Context, contactID string) (*model.Qualification, error) {
	log := zap.L().With(zap.String("contact_id", contactID))
	start := r.p.now()

	contact, err := r.p.store.GetContact(ctx, contactID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, eris.Wrapf(err, "pipeline: load contact %s", contactID)
	}
	if err != nil {
		return nil, batch.Fatal(eris.Wrapf(err, "pipeline: load contact %s", contactID))
	}

	outcome, err := r.p.reconciler.Reconcile(ctx, provider.IdentityFor(*contact))
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: enrich %s", contactID)
	}
	profile := outcome.Profile

	matches := persona.MatchAll(profile, *contact, r.personas)
	best := persona.BestMatch(matches)
	profile.Tier = tier.ForMatch(best)
	score := meddic.Score(*contact, profile, best, r.p.now())

	if err := r.p.store.SaveProfile(ctx, contactID, &profile); err != nil {
		return nil, batch.Fatal(eris.Wrapf(err, "pipeline: save profile %s", contactID))
	}
	if err := r.p.store.ReplaceMatches(ctx, contactID, matches); err != nil {
		return nil, batch.Fatal(eris.Wrapf(err, "pipeline: save matches %s", contactID))
	}
	if err := r.p.store.SaveMEDDIC(ctx, &score); err != nil {
		return nil, batch.Fatal(eris.Wrapf(err, "pipeline: save meddic %s", contactID))
	}

	log.Info("pipeline: qualified",
		zap.String("source", string(profile.EnrichmentSource)),
		zap.Bool("fallback", profile.Fallback),
		zap.String("tier", string(profile.Tier)),
		zap.Float64("meddic", score.OverallScore),
		zap.Duration("duration", r.p.now().Sub(start)),
	)

	return &model.Qualification{
		Contact:   *contact,
		Profile:   &profile,
		Matches:   matches,
		BestMatch: best,
		MEDDIC:    &score,
	}, nil
}

// EnrichContact qualifies a single contact through the orchestrator, so the
// outcome is recorded on the contact exactly as in a batch.
func (p *Pipeline) EnrichContact(ctx context.Context, contactID string) (*model.Qualification, error) {
	run, err := p.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	src := batch.SourceFunc(func(ctx context.Context) ([]batch.Item, error) {
		c, err := p.store.GetContact(ctx, contactID)
		if err != nil {
			return nil, err
		}
		return []batch.Item{{ID: c.ID, Label: c.Label()}}, nil
	})

	progress, err := p.orch.Run(ctx, batch.NewJob(uuid.NewString()), src, run)
	if err != nil {
		return nil, err
	}
	if progress.FailedItems > 0 {
		reason := ""
		if c, cerr := p.store.GetContact(ctx, contactID); cerr == nil {
			reason = c.StatusReason
		}
		return nil, eris.Wrapf(ErrEnrichmentFailed, "contact %s: %s", contactID, reason)
	}
	return p.Qualification(ctx, contactID)
}

// Qualification assembles the stored results for a contact. Parts that were
// never computed are nil.
func (p *Pipeline) Qualification(ctx context.Context, contactID string) (*model.Qualification, error) {
	contact, err := p.store.GetContact(ctx, contactID)
	if err != nil {
		return nil, err
	}
	q := &model.Qualification{Contact: *contact}

	profile, err := p.store.GetProfile(ctx, contactID)
	switch {
	case err == nil:
		q.Profile = profile
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	matches, err := p.store.ListMatches(ctx, contactID)
	if err != nil {
		return nil, err
	}
	q.Matches = matches
	q.BestMatch = persona.BestMatch(matches)

	score, err := p.store.GetMEDDIC(ctx, contactID)
	switch {
	case err == nil:
		q.MEDDIC = score
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return q, nil
}

// StartBatch snapshots personas and starts a background job over an event's
// contacts.
func (p *Pipeline) StartBatch(ctx context.Context, mgr *batch.Manager, eventID string, includeCompleted bool) (*batch.Job, error) {
	run, err := p.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return mgr.Start(ctx, EventSource(p.store, eventID, includeCompleted), run), nil
}
