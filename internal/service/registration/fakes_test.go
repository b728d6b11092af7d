package registration

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

// memDB backs every fake repository so a fake transaction can snapshot and
// restore all tables at once.
type memDB struct {
	mu         sync.Mutex
	clinics    map[uuid.UUID]*model.Clinic
	dentists   map[uuid.UUID]*model.Dentist
	treatments []*model.ClinicTreatment
	roles      []*model.UserRole
	leads      []*model.Lead
	events     []*model.OutboxEvent

	states  map[uuid.UUID]*model.State
	cities  map[uuid.UUID]*model.City
	catalog map[uuid.UUID]*model.Treatment

	// clinicSlugRaces makes that many clinic inserts fail with ErrSlugTaken.
	clinicSlugRaces int
	failLead        error
	failRoleCheck   error
	commits         int
	rollbacks       int
}

type snapshot struct {
	clinics    map[uuid.UUID]*model.Clinic
	dentists   map[uuid.UUID]*model.Dentist
	treatments []*model.ClinicTreatment
	roles      []*model.UserRole
	leads      []*model.Lead
	events     []*model.OutboxEvent
}

func newMemDB() *memDB {
	return &memDB{
		clinics:  map[uuid.UUID]*model.Clinic{},
		dentists: map[uuid.UUID]*model.Dentist{},
		states:   map[uuid.UUID]*model.State{},
		cities:   map[uuid.UUID]*model.City{},
		catalog:  map[uuid.UUID]*model.Treatment{},
	}
}

func (db *memDB) addState(name string) *model.State {
	s := &model.State{ID: uuid.New(), Name: name, Slug: strings.ToLower(name)}
	db.states[s.ID] = s
	return s
}

func (db *memDB) addCity(state *model.State, name string) *model.City {
	c := &model.City{ID: uuid.New(), StateID: state.ID, Name: name, Slug: strings.ToLower(name)}
	db.cities[c.ID] = c
	return c
}

func (db *memDB) addTreatment(name string) *model.Treatment {
	t := &model.Treatment{ID: uuid.New(), Name: name, Slug: strings.ToLower(name)}
	db.catalog[t.ID] = t
	return t
}

func (db *memDB) snapshot() snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := snapshot{
		clinics:    make(map[uuid.UUID]*model.Clinic, len(db.clinics)),
		dentists:   make(map[uuid.UUID]*model.Dentist, len(db.dentists)),
		treatments: append([]*model.ClinicTreatment(nil), db.treatments...),
		roles:      append([]*model.UserRole(nil), db.roles...),
		leads:      append([]*model.Lead(nil), db.leads...),
		events:     append([]*model.OutboxEvent(nil), db.events...),
	}
	for k, v := range db.clinics {
		s.clinics[k] = v
	}
	for k, v := range db.dentists {
		s.dentists[k] = v
	}
	return s
}

func (db *memDB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.clinics = s.clinics
	db.dentists = s.dentists
	db.treatments = s.treatments
	db.roles = s.roles
	db.leads = s.leads
	db.events = s.events
}

func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := db.snapshot()
	if err := fn(ctx); err != nil {
		db.restore(snap)
		db.rollbacks++
		return err
	}
	db.commits++
	return nil
}

func prefixed(slugs []string, prefix string) []string {
	var out []string
	for _, s := range slugs {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

type fakeClinics struct{ db *memDB }

func (r fakeClinics) ListSlugsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []string
	for _, c := range r.db.clinics {
		all = append(all, c.Slug)
	}
	return prefixed(all, prefix), nil
}

func (r fakeClinics) Create(ctx context.Context, c *model.Clinic) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.clinicSlugRaces > 0 {
		r.db.clinicSlugRaces--
		return repository.ErrSlugTaken
	}
	for _, existing := range r.db.clinics {
		if existing.Slug == c.Slug {
			return repository.ErrSlugTaken
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.db.clinics[c.ID] = &cp
	return nil
}

func (r fakeClinics) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.clinics[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r fakeClinics) GetByOwner(ctx context.Context, userID uuid.UUID) (*model.Clinic, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.clinics {
		if c.IsOwnedBy(userID) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r fakeClinics) GetExtras(ctx context.Context, clinicID uuid.UUID) (*model.ClinicExtras, error) {
	return &model.ClinicExtras{}, nil
}

func (r fakeClinics) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.clinics, id)
	return nil
}

type fakeDentists struct{ db *memDB }

func (r fakeDentists) ListSlugsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []string
	for _, d := range r.db.dentists {
		all = append(all, d.Slug)
	}
	return prefixed(all, prefix), nil
}

func (r fakeDentists) Create(ctx context.Context, d *model.Dentist) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.dentists {
		if existing.Slug == d.Slug {
			return repository.ErrSlugTaken
		}
	}
	d.ID = uuid.New()
	cp := *d
	r.db.dentists[d.ID] = &cp
	return nil
}

func (r fakeDentists) GetPrimaryByClinic(ctx context.Context, clinicID uuid.UUID) (*model.Dentist, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, d := range r.db.dentists {
		if d.ClinicID == clinicID && d.IsPrimary {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeClinicTreatments struct{ db *memDB }

func (r fakeClinicTreatments) CreateBatch(ctx context.Context, rows []*model.ClinicTreatment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, row := range rows {
		row.ID = uuid.New()
		r.db.treatments = append(r.db.treatments, row)
	}
	return nil
}

func (r fakeClinicTreatments) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.ClinicTreatment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.ClinicTreatment
	for _, row := range r.db.treatments {
		if row.ClinicID == clinicID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeRoles struct{ db *memDB }

func (r fakeRoles) HasRole(ctx context.Context, userID uuid.UUID, role model.Role) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failRoleCheck != nil {
		return false, r.db.failRoleCheck
	}
	for _, ur := range r.db.roles {
		if ur.UserID == userID && ur.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeRoles) Create(ctx context.Context, role *model.UserRole) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	role.ID = uuid.New()
	r.db.roles = append(r.db.roles, role)
	return nil
}

type fakeLeads struct{ db *memDB }

func (r fakeLeads) Create(ctx context.Context, lead *model.Lead) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failLead != nil {
		return r.db.failLead
	}
	lead.ID = uuid.New()
	r.db.leads = append(r.db.leads, lead)
	return nil
}

type fakeLocations struct{ db *memDB }

func (r fakeLocations) ListStates(ctx context.Context) ([]*model.State, error) {
	var out []*model.State
	for _, s := range r.db.states {
		out = append(out, s)
	}
	return out, nil
}

func (r fakeLocations) ListCities(ctx context.Context, stateID uuid.UUID) ([]*model.City, error) {
	var out []*model.City
	for _, c := range r.db.cities {
		if c.StateID == stateID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r fakeLocations) GetState(ctx context.Context, id uuid.UUID) (*model.State, error) {
	s, ok := r.db.states[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (r fakeLocations) GetCity(ctx context.Context, id uuid.UUID) (*model.City, error) {
	c, ok := r.db.cities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

type fakeTreatments struct{ db *memDB }

func (r fakeTreatments) List(ctx context.Context) ([]*model.Treatment, error) {
	var out []*model.Treatment
	for _, t := range r.db.catalog {
		out = append(out, t)
	}
	return out, nil
}

func (r fakeTreatments) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Treatment, error) {
	var out []*model.Treatment
	for _, id := range ids {
		if t, ok := r.db.catalog[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeOutbox struct{ db *memDB }

func (r fakeOutbox) Create(ctx context.Context, e *model.OutboxEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e.ID = uuid.New()
	e.Status = model.OutboxStatusPending
	r.db.events = append(r.db.events, e)
	return nil
}

func (r fakeOutbox) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, errors.New("not used")
}

func (r fakeOutbox) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, msg *string, retryAt *time.Time) error {
	return errors.New("not used")
}

func (r fakeOutbox) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, errors.New("not used")
}

type recordingInvalidator struct {
	users []uuid.UUID
	err   error
}

func (r *recordingInvalidator) InvalidateProfile(ctx context.Context, userID uuid.UUID) error {
	r.users = append(r.users, userID)
	return r.err
}

func newTestWorkflow(db *memDB, cfg Config, profiles ProfileInvalidator) *Workflow {
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = time.Millisecond
	}
	return NewWorkflow(Dependencies{
		Tx:               db,
		Clinics:          fakeClinics{db},
		Dentists:         fakeDentists{db},
		ClinicTreatments: fakeClinicTreatments{db},
		Roles:            fakeRoles{db},
		Leads:            fakeLeads{db},
		Locations:        fakeLocations{db},
		Treatments:       fakeTreatments{db},
		Outbox:           fakeOutbox{db},
		Profiles:         profiles,
	}, cfg)
}
