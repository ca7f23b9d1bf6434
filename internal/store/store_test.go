package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-engine/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testPersona(id string) *model.Persona {
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	return &model.Persona{
		ID:          id,
		Name:        "Persona " + id,
		Description: "test persona",
		Criteria: model.PersonaCriteria{
			CompanySizeRange: &model.Range{Min: 10, Max: 100},
			Industries:       []string{"Software"},
		},
		Weights:   model.PersonaWeights{CompanySize: 0.5, Industry: 0.5},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetContact", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := &model.Contact{EventID: "ev1", Name: "Dana", Email: "dana@acme.com", Company: "Acme", Title: "CTO"}
		require.NoError(t, s.CreateContact(ctx, c))
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, model.EnrichmentPending, c.Status)

		got, err := s.GetContact(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dana", got.Name)
		assert.Equal(t, "Acme", got.Company)
		assert.Equal(t, model.EnrichmentPending, got.Status)
	})

	t.Run("GetContactNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetContact(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ImportSkipsExisting", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.ImportContacts(ctx, []model.Contact{
			{ID: "c1", EventID: "ev1", Name: "A", Company: "Acme"},
			{ID: "c2", EventID: "ev1", Name: "B", Company: "Globex"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = s.ImportContacts(ctx, []model.Contact{
			{ID: "c2", EventID: "ev1", Name: "B2", Company: "Globex"},
			{ID: "c3", EventID: "ev2", Name: "C", Company: "Initech"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := s.GetContact(ctx, "c2")
		require.NoError(t, err)
		assert.Equal(t, "B", got.Name)
	})

	t.Run("ListContactsFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.ImportContacts(ctx, []model.Contact{
			{ID: "c1", EventID: "ev1", Company: "A"},
			{ID: "c2", EventID: "ev1", Company: "B"},
			{ID: "c3", EventID: "ev2", Company: "C"},
		})
		require.NoError(t, err)
		require.NoError(t, s.UpdateContactStatus(ctx, "c2", model.EnrichmentCompleted, ""))

		all, err := s.ListContacts(ctx, ContactFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "c1", all[0].ID)
		assert.Equal(t, "c3", all[2].ID)

		ev1, err := s.ListContacts(ctx, ContactFilter{EventID: "ev1"})
		require.NoError(t, err)
		assert.Len(t, ev1, 2)

		pending, err := s.ListContacts(ctx, ContactFilter{
			EventID:  "ev1",
			Statuses: []model.EnrichmentStatus{model.EnrichmentPending, model.EnrichmentFailed},
		})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "c1", pending[0].ID)

		page, err := s.ListContacts(ctx, ContactFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "c2", page[0].ID)
	})

	t.Run("UpdateContactStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		c := &model.Contact{Company: "Acme"}
		require.NoError(t, s.CreateContact(ctx, c))

		require.NoError(t, s.UpdateContactStatus(ctx, c.ID, model.EnrichmentFailed, "provider exploded"))
		got, err := s.GetContact(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, model.EnrichmentFailed, got.Status)
		assert.Equal(t, "provider exploded", got.StatusReason)

		err = s.UpdateContactStatus(ctx, "missing", model.EnrichmentFailed, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ProfileReplaced", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetProfile(ctx, "c1")
		assert.ErrorIs(t, err, ErrNotFound)

		p := &model.EnrichedCompany{
			Name:             "Acme",
			Domain:           "acme.com",
			EmployeeCount:    model.Int(120),
			Technologies:     []string{"Go"},
			EnrichmentSource: model.SourceMock,
		}
		require.NoError(t, s.SaveProfile(ctx, "c1", p))

		p2 := *p
		p2.EmployeeCount = model.Int(300)
		p2.EnrichmentSource = model.SourceMultiLLM
		require.NoError(t, s.SaveProfile(ctx, "c1", &p2))

		got, err := s.GetProfile(ctx, "c1")
		require.NoError(t, err)
		require.NotNil(t, got.EmployeeCount)
		assert.Equal(t, 300, *got.EmployeeCount)
		assert.Equal(t, model.SourceMultiLLM, got.EnrichmentSource)
		assert.Equal(t, []string{"Go"}, got.Technologies)
	})

	t.Run("PersonaCRUD", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.CreatePersona(ctx, testPersona("b")))
		require.NoError(t, s.CreatePersona(ctx, testPersona("a")))
		assert.Error(t, s.CreatePersona(ctx, testPersona("a")))

		list, err := s.ListPersonas(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "b", list[0].ID, "insertion order")
		assert.Equal(t, "a", list[1].ID)

		p := testPersona("a")
		p.Name = "Renamed"
		p.Criteria.Industries = []string{"Retail"}
		require.NoError(t, s.UpdatePersona(ctx, p))

		got, err := s.GetPersona(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.Equal(t, []string{"Retail"}, got.Criteria.Industries)
		require.NotNil(t, got.Criteria.CompanySizeRange)
		assert.Equal(t, float64(100), got.Criteria.CompanySizeRange.Max)
		assert.InDelta(t, 0.5, got.Weights.CompanySize, 1e-9)

		assert.ErrorIs(t, s.UpdatePersona(ctx, testPersona("zzz")), ErrNotFound)

		require.NoError(t, s.DeletePersona(ctx, "a"))
		_, err = s.GetPersona(ctx, "a")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeletePersona(ctx, "a"), ErrNotFound)
	})

	t.Run("DefaultPersonaFlag", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := testPersona("d")
		p.IsDefault = true
		require.NoError(t, s.CreatePersona(ctx, p))

		got, err := s.GetPersona(ctx, "d")
		require.NoError(t, err)
		assert.True(t, got.IsDefault)
	})

	t.Run("MatchesReplacedAndCounted", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()

		first := []model.PersonaMatch{
			{PersonaID: "p1", BadgeScanID: "c1", FitScore: 40, Tier: model.TierWarm, CalculatedAt: now},
			{PersonaID: "p2", BadgeScanID: "c1", FitScore: 90, Tier: model.TierHot, CalculatedAt: now},
		}
		require.NoError(t, s.ReplaceMatches(ctx, "c1", first))
		require.NoError(t, s.ReplaceMatches(ctx, "c2", first[:1]))

		n, err := s.CountPersonaReferences(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		second := []model.PersonaMatch{
			{PersonaID: "p2", BadgeScanID: "c1", FitScore: 75, Tier: model.TierHot, CalculatedAt: now,
				CriteriaMatches: []model.CriterionMatch{{CriterionName: "industry", Matched: true, Weight: 0.5, Contribution: 50}}},
		}
		require.NoError(t, s.ReplaceMatches(ctx, "c1", second))

		got, err := s.ListMatches(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "p2", got[0].PersonaID)
		assert.Equal(t, 75.0, got[0].FitScore)
		require.Len(t, got[0].CriteriaMatches, 1)
		assert.True(t, got[0].CriteriaMatches[0].Matched)

		n, err = s.CountPersonaReferences(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("DeleteReferencedPersonaRefused", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreatePersona(ctx, testPersona("p1")))
		require.NoError(t, s.CreatePersona(ctx, testPersona("p2")))
		require.NoError(t, s.ReplaceMatches(ctx, "c1", []model.PersonaMatch{
			{PersonaID: "p1", BadgeScanID: "c1", FitScore: 60, Tier: model.TierWarm, CalculatedAt: time.Now().UTC()},
		}))
		require.NoError(t, s.CreateReportRef(ctx, &model.ReportRef{ContactID: "c1", PersonaID: "p2"}))

		assert.ErrorIs(t, s.DeletePersona(ctx, "p1"), ErrReferenced)
		assert.ErrorIs(t, s.DeletePersona(ctx, "p2"), ErrReferenced)
		_, err := s.GetPersona(ctx, "p1")
		require.NoError(t, err)

		require.NoError(t, s.ReplaceMatches(ctx, "c1", nil))
		require.NoError(t, s.DeletePersona(ctx, "p1"))
		assert.ErrorIs(t, s.DeletePersona(ctx, "p1"), ErrNotFound)
	})

	t.Run("ReportRefsCountAsReferences", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		r := &model.ReportRef{ContactID: "c1", PersonaID: "p9"}
		require.NoError(t, s.CreateReportRef(ctx, r))
		assert.NotEmpty(t, r.ID)

		n, err := s.CountPersonaReferences(ctx, "p9")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = s.CountPersonaReferences(ctx, "unused")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("MEDDICUpsert", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetMEDDIC(ctx, "c1")
		assert.ErrorIs(t, err, ErrNotFound)

		m := &model.MEDDICScore{
			BadgeScanID:         "c1",
			CompanyID:           "acme.com",
			OverallScore:        30,
			QualificationStatus: model.Unqualified,
			CalculatedAt:        time.Now().UTC(),
		}
		require.NoError(t, s.SaveMEDDIC(ctx, m))
		m.OverallScore = 75
		m.QualificationStatus = model.Qualified
		require.NoError(t, s.SaveMEDDIC(ctx, m))

		got, err := s.GetMEDDIC(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 75.0, got.OverallScore)
		assert.Equal(t, model.Qualified, got.QualificationStatus)
		assert.Equal(t, "acme.com", got.CompanyID)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
