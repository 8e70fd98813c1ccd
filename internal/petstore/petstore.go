// Package petstore is a sample pet store API built with rest.
package petstore

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bjaus/rest"
)

// Query filters the pet list.
type Query struct {
	Species string `json:"species" enum:"cat,dog,bird" doc:"Only pets of this species"`
	Status  string `json:"status" enum:"available,pending,sold"`
}

// PhotoUpload is the multipart body of a photo upload.
type PhotoUpload struct {
	File rest.FileUpload `json:"file" required:"true" doc:"JPEG or PNG picture"`
}

var (
	petSchema   = rest.SchemaFor[Pet]()
	petsSchema  = rest.SchemaFor[Pet](rest.Many())
	inputSchema = rest.SchemaFor[PetInput]()
	errorSchema = rest.SchemaFor[rest.ErrorBody]()
)

// New builds the pet store API on store.
func New(cfg rest.Config, store *Store, logger *slog.Logger) (*rest.API, error) {
	a, err := rest.New(rest.WithConfig(cfg), rest.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	a.Use(rest.Recovery(), rest.Logger(logger))
	if err := a.Register(Blueprint(store)); err != nil {
		return nil, err
	}
	return a, nil
}

// Blueprint declares the pet routes.
func Blueprint(store *Store) *rest.Blueprint {
	h := &handlers{store: store}
	bp := rest.NewBlueprint("pets", "/pets", rest.WithBlueprintDescription("Pets of the store"))
	notFound := rest.AltResponse(http.StatusNotFound, errorSchema, rest.Description("Pet not found"))

	bp.Route("/").
		Get(h.list,
			rest.Describe("List pets\n\nPets are ordered by ID and may be filtered by species and status."),
			rest.Arguments(rest.SchemaFor[Query](), rest.LocationQuery),
			rest.Response(http.StatusOK, petsSchema),
			rest.Paginate(rest.WithPager(rest.SlicePager)),
		).
		Post(h.create,
			rest.Describe("Add a pet"),
			rest.Arguments(inputSchema, rest.LocationJSON),
			rest.Response(http.StatusCreated, petSchema),
		)

	bp.Route("/{pet_id:int}").
		Get(h.get,
			rest.Describe("Find a pet by ID"),
			rest.ETag(),
			rest.Response(http.StatusOK, petSchema),
			notFound,
		).
		Put(h.update,
			rest.Describe("Update a pet\n\nSend the ETag of the current version in If-Match."),
			rest.ETag(),
			rest.Arguments(inputSchema, rest.LocationJSON),
			rest.Response(http.StatusOK, petSchema),
			notFound,
		).
		Delete(h.delete,
			rest.Describe("Delete a pet"),
			rest.ETag(),
			rest.Response(http.StatusNoContent, nil),
			notFound,
		)

	bp.Route("/{pet_id:int}/photo").
		Post(h.uploadPhoto,
			rest.Describe("Upload a photo of a pet"),
			rest.Arguments(rest.SchemaFor[PhotoUpload](), rest.LocationFiles),
			rest.Response(http.StatusOK, petSchema),
			notFound,
		)
	return bp
}

type handlers struct {
	store *Store
}

func (h *handlers) list(_ context.Context, call *rest.Call) (any, error) {
	q := rest.Arg[Query](call, 0)
	return h.store.List(Filter(q)), nil
}

func (h *handlers) create(_ context.Context, call *rest.Call) (any, error) {
	return h.store.Create(rest.Arg[PetInput](call, 0)), nil
}

func (h *handlers) get(_ context.Context, call *rest.Call) (any, error) {
	return h.lookup(call)
}

func (h *handlers) update(_ context.Context, call *rest.Call) (any, error) {
	pet, err := h.lookup(call)
	if err != nil {
		return nil, err
	}
	if err := call.CheckETag(pet, petSchema); err != nil {
		return nil, err
	}
	return h.store.Update(pet.ID, rest.Arg[PetInput](call, 0))
}

func (h *handlers) delete(_ context.Context, call *rest.Call) (any, error) {
	pet, err := h.lookup(call)
	if err != nil {
		return nil, err
	}
	if err := call.CheckETag(pet, petSchema); err != nil {
		return nil, err
	}
	return nil, h.store.Delete(pet.ID)
}

func (h *handlers) uploadPhoto(_ context.Context, call *rest.Call) (any, error) {
	pet, err := h.lookup(call)
	if err != nil {
		return nil, err
	}
	upload := rest.Arg[PhotoUpload](call, 0)
	return h.store.SetPhoto(pet.ID, Photo{
		Filename:    upload.File.Filename,
		Size:        upload.File.Size,
		ContentType: upload.File.ContentType,
	})
}

func (h *handlers) lookup(call *rest.Call) (Pet, error) {
	raw := call.Request().PathValue("pet_id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return Pet{}, rest.Errorf(http.StatusNotFound, "pet %s not found", raw)
	}
	pet, err := h.store.Get(id)
	if errors.Is(err, ErrNotFound) {
		return Pet{}, rest.Errorf(http.StatusNotFound, "pet %d not found", id)
	}
	return pet, err
}
