/*
Package dualbind exposes annotated entity members through two
independent protocol surfaces, a REST-style verb/path API and a GraphQL
query/mutation/subscription API, from a single registration.

The engine owns four concerns:

  - Descriptor construction: each registered member gets one immutable
    ActionDescriptor, built by layering defaults, the derived
    name/path, caller options, and protocol autogen flags.
  - Lifting: instance members are synthesized into static-scope
    callables that take an entity identifier, load the entity through
    the Loader collaborator, and forward the call. Descriptor metadata
    is carried onto the synthesized callable.
  - Permission gating: a Rule (literal Allow or Predicate over the
    CRUD-phase context) is evaluated fresh on every invocation, before
    anything else runs, identically for both protocols.
  - Binding: the descriptor is translated into a RESTBinding and/or a
    GraphQLBinding and handed to whichever adapters are supplied.
    Parameter origins (body, query, path, header, cookie, context,
    request, response) are replayed one-to-one into each adapter's
    parameter-extraction vocabulary.

Persistence beyond load-by-identifier, transports, and process
bootstrap are external collaborators. Reference adapters live in the
restbind and gqlbind subpackages; an in-memory Loader lives in
memstore.

Registration:

	reg := dualbind.NewRegistry().WithLoader(store)

	widgets := reg.Class(&Widget{})
	widgets.MustAction("Rename", dualbind.Options{
		REST:       &dualbind.RESTOptions{Verb: dualbind.PATCH, Path: "/widget/rename"},
		GraphQL:    &dualbind.GraphQLOptions{Kind: dualbind.OpMutation},
		Permission: dualbind.Predicate(isOwner),
	})

	err := reg.BindAll(restAdapter, gqlAdapter)

Registration happens once at bootstrap time, single-threaded. Bound
handlers run with arbitrary per-request concurrency.
*/
package dualbind
