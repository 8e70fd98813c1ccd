// Package rest builds documented HTTP APIs from annotated handlers. Each
// handler declares what it needs as an ordered list of strategies: the
// arguments to load from the request, the response schema, pagination
// and conditional request support. The package runs that pipeline on
// every request and derives an OpenAPI 2.0 or 3.x document from the same
// annotations.
//
// Handlers receive a *Call and return a result:
//
//	type HandlerFunc func(ctx context.Context, call *Call) (any, error)
//
// Routes are grouped in blueprints and registered on an API:
//
//	a, err := rest.New(rest.WithTitle("Pets"), rest.WithVersion("1"))
//	bp := rest.NewBlueprint("pets", "/pets", rest.WithBlueprintDescription("Pet store"))
//	bp.Route("/").
//	    Get(listPets,
//	        rest.Arguments(rest.SchemaFor[PetQuery](), rest.LocationQuery),
//	        rest.Response(http.StatusOK, rest.SchemaFor[Pet](rest.Many())),
//	        rest.Paginate(rest.WithPager(rest.SlicePager)),
//	    ).
//	    Post(createPet,
//	        rest.Arguments(rest.SchemaFor[Pet](), rest.LocationJSON),
//	        rest.Response(http.StatusCreated, rest.SchemaFor[Pet]()),
//	    )
//	bp.Route("/{pet_id:int}").
//	    Put(updatePet,
//	        rest.ETag(),
//	        rest.Arguments(rest.SchemaFor[Pet](), rest.LocationJSON),
//	        rest.Response(http.StatusOK, rest.SchemaFor[Pet]()),
//	    )
//	err = a.Register(bp)
//
// Struct tags drive loading and documentation: json names a field in every
// location, required:"true" makes it mandatory, default:"..." fills it in
// and doc:"..." describes it. Constraint tags such as minLength, maximum
// and enum are validated and documented.
//
// The document is served under Config.URLPrefix, with optional ReDoc,
// Swagger UI and RapiDoc pages:
//
//	a.WriteSpec(os.Stdout)
package rest
