package petstore

import (
	"errors"
	"maps"
	"slices"
	"sync"
)

// ErrNotFound is returned for unknown pet IDs.
var ErrNotFound = errors.New("petstore: pet not found")

// PetInput is the writable part of a pet.
type PetInput struct {
	Name    string   `json:"name" required:"true" minLength:"1" maxLength:"64" doc:"Pet name" example:"Rex"`
	Species string   `json:"species" required:"true" enum:"cat,dog,bird"`
	Status  string   `json:"status" default:"available" enum:"available,pending,sold"`
	Tags    []string `json:"tags" maxItems:"10"`
}

// Pet is a pet of the store.
type Pet struct {
	ID int `json:"id" doc:"Pet identifier"`
	PetInput
	Photo *Photo `json:"photo,omitempty"`
}

// Photo describes the uploaded picture of a pet.
type Photo struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Filter selects pets in List. Empty fields match everything.
type Filter struct {
	Species string
	Status  string
}

// Store is an in-memory pet repository, safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	next int
	pets map[int]Pet
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{next: 1, pets: make(map[int]Pet)}
}

// List returns the matching pets ordered by ID.
func (s *Store) List(f Filter) []Pet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Pet
	for _, id := range slices.Sorted(maps.Keys(s.pets)) {
		p := s.pets[id]
		if f.Species != "" && p.Species != f.Species {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Get returns the pet with the given ID.
func (s *Store) Get(id int) (Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pets[id]
	if !ok {
		return Pet{}, ErrNotFound
	}
	return p, nil
}

// Create adds a pet and returns it with its new ID.
func (s *Store) Create(in PetInput) Pet {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Pet{ID: s.next, PetInput: in}
	s.pets[p.ID] = p
	s.next++
	return p
}

// Update replaces the writable fields of a pet.
func (s *Store) Update(id int, in PetInput) (Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pets[id]
	if !ok {
		return Pet{}, ErrNotFound
	}
	p.PetInput = in
	s.pets[id] = p
	return p, nil
}

// SetPhoto records the photo of a pet.
func (s *Store) SetPhoto(id int, photo Photo) (Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pets[id]
	if !ok {
		return Pet{}, ErrNotFound
	}
	p.Photo = &photo
	s.pets[id] = p
	return p, nil
}

// Delete removes a pet.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pets[id]; !ok {
		return ErrNotFound
	}
	delete(s.pets, id)
	return nil
}
