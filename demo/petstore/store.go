package petstore

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/celsowm/adorn-api/api/contract"
	"github.com/celsowm/adorn-api/httperror"
)

// Store is the in-memory pet collection backing the demo controller.
type Store struct {
	mu   sync.Mutex
	pets map[uuid.UUID]Pet
}

func NewStore() *Store {
	return &Store{pets: make(map[uuid.UUID]Pet)}
}

// List returns pets matching the filter, newest first.
func (s *Store) List(filter ListFilter) ([]Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Pet, 0, len(s.pets))
	for _, p := range s.pets {
		if filter.Tag != nil && (p.Tag == nil || *p.Tag != *filter.Tag) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit != nil && *filter.Limit >= 0 && len(out) > *filter.Limit {
		out = out[:*filter.Limit]
	}
	return out, nil
}

func (s *Store) Get(id uuid.UUID) (Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pets[id]
	if !ok {
		return Pet{}, httperror.NotFoundf("pet %s not found", id)
	}
	return p, nil
}

func (s *Store) Create(in NewPet) (Pet, error) {
	if in.Name == "" {
		return Pet{}, httperror.UnprocessableEntity("pet name cannot be empty")
	}
	p := Pet{ID: uuid.New(), Name: in.Name, Tag: in.Tag, CreatedAt: time.Now().UTC()}

	s.mu.Lock()
	s.pets[p.ID] = p
	s.mu.Unlock()
	return p, nil
}

func (s *Store) Update(id uuid.UUID, in NewPet) (Pet, error) {
	if in.Name == "" {
		return Pet{}, httperror.UnprocessableEntity("pet name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pets[id]
	if !ok {
		return Pet{}, httperror.NotFoundf("pet %s not found", id)
	}
	p.Name, p.Tag = in.Name, in.Tag
	s.pets[id] = p
	return p, nil
}

func (s *Store) Delete(ctx contract.Ctx, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pets[id]; !ok {
		return httperror.NotFoundf("pet %s not found", id)
	}
	delete(s.pets, id)
	return nil
}

// Controller describes the pets API surface. The source scanner reads
// this literal at build time; Register hands the same descriptor to the
// runtime binder.
func (s *Store) Controller() contract.Controller {
	return contract.Controller{
		Name:     "pets",
		BasePath: "/pets",
		Ops: []contract.Op{
			{Method: "GET", Path: "", Fn: s.List},
			{Method: "GET", Path: "/{id}", Fn: s.Get, Replies: []contract.Reply{
				{Status: 200, Body: Pet{}},
				{Status: 404},
			}},
			{Method: "POST", Path: "", Fn: s.Create},
			{Method: "PUT", Path: "/{id}", Fn: s.Update},
			{Method: "DELETE", Path: "/{id}", Fn: s.Delete, Auth: "bearer"},
		},
	}
}

// Register adds the pets controller to a registry.
func (s *Store) Register(r *contract.ControllerRegistry) contract.Controller {
	return r.Register(s.Controller())
}
