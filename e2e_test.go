package dualbind_test

import (
	"context"
	"net/http"
	"reflect"
	"testing"
	"time"

	"dualbind"
	"dualbind/gqlbind"
	"dualbind/memstore"
	"dualbind/restbind"
	"dualbind/testutil"

	"github.com/graphql-go/graphql"
)

type widget struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

func (w *widget) Rename(newName string) (string, error) {
	w.Name = newName
	return w.Name, nil
}

func (w *widget) Describe() (string, error) {
	return w.Name + " owned by " + w.Owner, nil
}

// setup registers widget.Rename behind an owner-only rule and binds it
// to both protocol surfaces backed by one shared store.
func setup(t *testing.T) (*memstore.Store, *restbind.Adapter, *gqlbind.Adapter, *dualbind.Action) {
	t.Helper()

	store := memstore.New()
	store.Put("7", &widget{ID: "7", Name: "sprocket", Owner: "alice"})

	isOwner := dualbind.Predicate(func(pc *dualbind.PhaseContext) bool {
		return pc.Actor == "alice"
	})

	reg := dualbind.NewRegistry().WithLoader(store)
	action := reg.Class(&widget{}).MustAction("Rename", dualbind.Options{
		Permission: isOwner,
		Params: []dualbind.ParamOption{
			{Name: "newName"},
		},
		REST:    &dualbind.RESTOptions{Verb: dualbind.PATCH, Path: "/widget/rename"},
		GraphQL: &dualbind.GraphQLOptions{Kind: dualbind.OpMutation},
	})

	rest := restbind.New()
	gql := gqlbind.New()
	if err := reg.BindAll(rest, gql); err != nil {
		t.Fatalf("BindAll: %v", err)
	}
	return store, rest, gql, action
}

func TestRenameOverREST(t *testing.T) {
	store, rest, _, _ := setup(t)

	w := testutil.NewRequest().
		PATCH("/widget/rename").
		WithQuery("id", "7").
		WithJSON(map[string]any{"newName": "gizmo"}).
		WithActor("alice").
		Serve(rest.Handler())

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResult(t, w, "gizmo")
	if store.Loads() != 1 {
		t.Errorf("Loads = %d, want exactly 1", store.Loads())
	}

	entity, _ := store.LoadByIdentifier(context.Background(), widgetType(), "7")
	if entity.(*widget).Name != "gizmo" {
		t.Errorf("stored name = %q, rename did not persist", entity.(*widget).Name)
	}
}

func TestRenameDeniedRecordsZeroLoads(t *testing.T) {
	store, rest, _, _ := setup(t)

	w := testutil.NewRequest().
		PATCH("/widget/rename").
		WithQuery("id", "7").
		WithJSON(map[string]any{"newName": "gizmo"}).
		WithActor("mallory").
		Serve(rest.Handler())

	testutil.AssertStatus(t, w, http.StatusForbidden)
	testutil.AssertJSONError(t, w, string(dualbind.CodePermissionDenied))
	if store.Loads() != 0 {
		t.Errorf("Loads = %d, denial must short-circuit before the load", store.Loads())
	}

	entity, _ := store.LoadByIdentifier(context.Background(), widgetType(), "7")
	if entity.(*widget).Name != "sprocket" {
		t.Errorf("stored name = %q, denied rename must not persist", entity.(*widget).Name)
	}
}

func TestRenameMissingEntity(t *testing.T) {
	_, rest, _, _ := setup(t)

	w := testutil.NewRequest().
		PATCH("/widget/rename").
		WithQuery("id", "404").
		WithJSON(map[string]any{"newName": "gizmo"}).
		WithActor("alice").
		Serve(rest.Handler())

	testutil.AssertStatus(t, w, http.StatusNotFound)
	testutil.AssertJSONError(t, w, string(dualbind.CodeNotFound))
}

func TestRenameOverGraphQL(t *testing.T) {
	store, _, gql, _ := setup(t)

	ctx := dualbind.WithActor(context.Background(), "alice")
	res := gql.Do(ctx, `mutation { rename(id: "7", newName: "thingamajig") }`, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("execution errors: %v", res.Errors)
	}
	if res.Data.(map[string]any)["rename"] != "thingamajig" {
		t.Errorf("rename = %v", res.Data)
	}
	if store.Loads() != 1 {
		t.Errorf("Loads = %d, want exactly 1", store.Loads())
	}
}

// The two protocol surfaces share one descriptor, so a permission
// verdict and its zero-load property hold identically on both.
func TestDualProtocolIdentity(t *testing.T) {
	store, rest, gql, _ := setup(t)

	w := testutil.NewRequest().
		PATCH("/widget/rename").
		WithQuery("id", "7").
		WithJSON(map[string]any{"newName": "x"}).
		WithActor("mallory").
		Serve(rest.Handler())
	testutil.AssertJSONError(t, w, string(dualbind.CodePermissionDenied))

	ctx := dualbind.WithActor(context.Background(), "mallory")
	res := gql.Do(ctx, `mutation { rename(id: "7", newName: "x") }`, nil)
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want one", res.Errors)
	}
	if res.Errors[0].Message != "permission_denied: action \"rename\" denied" {
		t.Errorf("message = %q", res.Errors[0].Message)
	}
	if store.Loads() != 0 {
		t.Errorf("Loads = %d, denial must record zero loads on both surfaces", store.Loads())
	}
}

func TestDirectInvoke(t *testing.T) {
	store, _, _, action := setup(t)

	ctx := dualbind.WithActor(context.Background(), "alice")
	res, err := action.Invoke(ctx, "7", "doohickey")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res != "doohickey" {
		t.Errorf("result = %v", res)
	}

	// Direct invocations pass the same gate as the protocol surfaces.
	ctx = dualbind.WithActor(context.Background(), "mallory")
	before := store.Loads()
	if _, err := action.Invoke(ctx, "7", "nope"); !dualbind.IsCode(err, dualbind.CodePermissionDenied) {
		t.Errorf("error = %v, want permission_denied", err)
	}
	if store.Loads() != before {
		t.Error("denied Invoke must not load")
	}
}

func TestReadActionOverBothSurfaces(t *testing.T) {
	store := memstore.New()
	store.Put("7", &widget{ID: "7", Name: "sprocket", Owner: "alice"})

	reg := dualbind.NewRegistry().WithLoader(store)
	reg.Class(&widget{}).MustAction("Describe", dualbind.Options{
		REST:    &dualbind.RESTOptions{Verb: dualbind.GET, Path: "/widget/describe"},
		GraphQL: &dualbind.GraphQLOptions{Kind: dualbind.OpQuery},
	})

	rest := restbind.New()
	gql := gqlbind.New()
	if err := reg.BindAll(rest, gql); err != nil {
		t.Fatalf("BindAll: %v", err)
	}

	w := testutil.NewRequest().
		GET("/widget/describe").
		WithQuery("id", "7").
		Serve(rest.Handler())
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResult(t, w, "sprocket owned by alice")

	res := gql.Do(context.Background(), `{ describe(id: "7") }`, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("execution errors: %v", res.Errors)
	}
	if res.Data.(map[string]any)["describe"] != "sprocket owned by alice" {
		t.Errorf("describe = %v", res.Data)
	}
}

func widgetType() reflect.Type {
	return reflect.TypeOf(widget{})
}

// setupSubscription binds a subscription-kind action backed by a Feed
// and returns the assembled schema for driving graphql.Subscribe.
func setupSubscription(t *testing.T, rule dualbind.Rule) (*dualbind.Feed[string], graphql.Schema) {
	t.Helper()

	feed := dualbind.NewFeed("idle")
	reg := dualbind.NewRegistry()
	reg.Class(&widget{}).
		Static("Status", func() (string, error) { return "", nil }).
		MustAction("Status", dualbind.Options{
			Permission:  rule,
			DisableREST: true,
			GraphQL: &dualbind.GraphQLOptions{
				Kind:         dualbind.OpSubscription,
				Subscription: &dualbind.SubscriptionOptions{Source: feed},
			},
		})

	gql := gqlbind.New()
	if err := reg.BindAll(nil, gql); err != nil {
		t.Fatalf("BindAll: %v", err)
	}
	schema, err := gql.Schema()
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	return feed, schema
}

func nextResult(t *testing.T, results chan *graphql.Result) *graphql.Result {
	t.Helper()
	select {
	case res, ok := <-results:
		if !ok {
			t.Fatal("result channel closed early")
		}
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a subscription result")
	}
	return nil
}

func TestSubscriptionDeliversCurrentThenUpdates(t *testing.T) {
	feed, schema := setupSubscription(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := graphql.Subscribe(graphql.Params{
		Schema:        schema,
		RequestString: `subscription { status }`,
		Context:       ctx,
	})

	res := nextResult(t, results)
	if len(res.Errors) > 0 {
		t.Fatalf("first result errors: %v", res.Errors)
	}
	if res.Data.(map[string]any)["status"] != "idle" {
		t.Errorf("first value = %v, want the current value idle", res.Data)
	}

	feed.Set("running")
	res = nextResult(t, results)
	if len(res.Errors) > 0 {
		t.Fatalf("second result errors: %v", res.Errors)
	}
	if res.Data.(map[string]any)["status"] != "running" {
		t.Errorf("second value = %v, want running", res.Data)
	}
}

// The permission gate guards the subscription surface like any other:
// a denied rule surfaces as permission_denied and no value is streamed.
func TestSubscriptionDenied(t *testing.T) {
	_, schema := setupSubscription(t, dualbind.Allow(false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := graphql.Subscribe(graphql.Params{
		Schema:        schema,
		RequestString: `subscription { status }`,
		Context:       ctx,
	})

	res := nextResult(t, results)
	if len(res.Errors) == 0 {
		t.Fatalf("result = %+v, want a permission error", res)
	}
	if res.Errors[0].Message != "permission_denied: action \"status\" denied" {
		t.Errorf("message = %q", res.Errors[0].Message)
	}
	if res.Data != nil {
		if m, ok := res.Data.(map[string]any); !ok || m["status"] != nil {
			t.Errorf("data = %v, want none", res.Data)
		}
	}
}
