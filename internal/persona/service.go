package persona

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/model"
)

var (
	// ErrImmutable is returned when a default persona would be changed.
	ErrImmutable = eris.New("persona: default personas are immutable")
	// ErrConflict is returned when deleting a persona that is still referenced.
	ErrConflict = eris.New("persona: persona is referenced by stored matches or reports")
)

// Store is the persistence the service needs.
type Store interface {
	CreatePersona(ctx context.Context, p *model.Persona) error
	UpdatePersona(ctx context.Context, p *model.Persona) error
	GetPersona(ctx context.Context, id string) (*model.Persona, error)
	ListPersonas(ctx context.Context) ([]model.Persona, error)
	DeletePersona(ctx context.Context, id string) error
	CountPersonaReferences(ctx context.Context, id string) (int, error)
}

// Service manages persona configuration.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a persona service over st.
func NewService(st Store) *Service {
	return &Service{store: st, now: time.Now}
}

// EnsureDefaults inserts any built-in persona that is missing. It returns how
// many were created.
func (s *Service) EnsureDefaults(ctx context.Context) (int, error) {
	existing, err := s.store.ListPersonas(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "persona: list for defaults")
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[p.ID] = true
	}

	created := 0
	for _, p := range Defaults() {
		if have[p.ID] {
			continue
		}
		p.CreatedAt = s.now().UTC()
		p.UpdatedAt = p.CreatedAt
		if err := s.store.CreatePersona(ctx, &p); err != nil {
			return created, eris.Wrapf(err, "persona: seed default %s", p.ID)
		}
		created++
	}
	if created > 0 {
		zap.L().Info("persona: seeded default personas", zap.Int("count", created))
	}
	return created, nil
}

// List returns all personas in insertion order.
func (s *Service) List(ctx context.Context) ([]model.Persona, error) {
	personas, err := s.store.ListPersonas(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "persona: list")
	}
	return personas, nil
}

// Get returns one persona.
func (s *Service) Get(ctx context.Context, id string) (*model.Persona, error) {
	p, err := s.store.GetPersona(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "persona: get %s", id)
	}
	return p, nil
}

// Create validates and stores a custom persona. An empty ID gets a UUID.
func (s *Service) Create(ctx context.Context, p model.Persona) (*model.Persona, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	p.IsDefault = false
	p.CreatedAt = s.now().UTC()
	p.UpdatedAt = p.CreatedAt

	if err := s.store.CreatePersona(ctx, &p); err != nil {
		return nil, eris.Wrapf(err, "persona: create %s", p.ID)
	}
	return &p, nil
}

// Update replaces a custom persona's name, description, criteria and weights.
func (s *Service) Update(ctx context.Context, id string, p model.Persona) (*model.Persona, error) {
	current, err := s.store.GetPersona(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "persona: get %s", id)
	}
	if current.IsDefault {
		return nil, ErrImmutable
	}
	if err := Validate(p); err != nil {
		return nil, err
	}

	current.Name = p.Name
	current.Description = p.Description
	current.Criteria = p.Criteria
	current.Weights = p.Weights
	current.UpdatedAt = s.now().UTC()

	if err := s.store.UpdatePersona(ctx, current); err != nil {
		return nil, eris.Wrapf(err, "persona: update %s", id)
	}
	return current, nil
}

// Delete removes a custom persona that no stored match or report uses.
func (s *Service) Delete(ctx context.Context, id string) error {
	current, err := s.store.GetPersona(ctx, id)
	if err != nil {
		return eris.Wrapf(err, "persona: get %s", id)
	}
	if current.IsDefault {
		return ErrImmutable
	}

	err = s.store.DeletePersona(ctx, id)
	if errors.Is(err, model.ErrReferenced) {
		refs, cerr := s.store.CountPersonaReferences(ctx, id)
		if cerr != nil {
			return eris.Wrapf(ErrConflict, "persona %s", id)
		}
		return eris.Wrapf(ErrConflict, "persona %s has %d references", id, refs)
	}
	if err != nil {
		return eris.Wrapf(err, "persona: delete %s", id)
	}
	return nil
}

// Import creates every persona, stopping at the first failure. Personas
// whose ID already exists are updated instead.
func (s *Service) Import(ctx context.Context, personas []model.Persona) (int, error) {
	n := 0
	for _, p := range personas {
		if p.ID != "" {
			if _, err := s.store.GetPersona(ctx, p.ID); err == nil {
				if _, err := s.Update(ctx, p.ID, p); err != nil {
					return n, err
				}
				n++
				continue
			} else if !errors.Is(err, model.ErrNotFound) {
				return n, eris.Wrapf(err, "persona: get %s", p.ID)
			}
		}
		if _, err := s.Create(ctx, p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
