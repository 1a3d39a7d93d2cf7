package dualbind

import (
	"context"
	"errors"
	"reflect"
	"strings"
)

// Widget is the fixture entity used across the engine tests.
type Widget struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

// Rename is an instance member: reachable only on a constructed Widget.
func (w *Widget) Rename(newName string) (string, error) {
	if newName == "" {
		return "", errors.New("empty name")
	}
	w.Name = newName
	return w.Name, nil
}

// Describe is an instance member taking a context.
func (w *Widget) Describe(ctx context.Context) (string, error) {
	return w.Name + " owned by " + w.Owner, nil
}

// Shout is an instance member with no error result.
func (w *Widget) Shout() string {
	return strings.ToUpper(w.Name)
}

// countingLoader records every load so tests can assert the gate ran
// first.
type countingLoader struct {
	entities map[string]any
	loads    int
	failWith error
}

func newCountingLoader() *countingLoader {
	return &countingLoader{entities: make(map[string]any)}
}

func (l *countingLoader) LoadByIdentifier(ctx context.Context, class reflect.Type, id string) (any, error) {
	l.loads++
	if l.failWith != nil {
		return nil, l.failWith
	}
	entity, ok := l.entities[id]
	if !ok {
		return nil, nil
	}
	return entity, nil
}

// recordingRESTAdapter captures bindings instead of serving them.
type recordingRESTAdapter struct {
	bindings []RESTBinding
	failWith error
}

func (a *recordingRESTAdapter) BindREST(b RESTBinding) error {
	if a.failWith != nil {
		return a.failWith
	}
	a.bindings = append(a.bindings, b)
	return nil
}

// recordingGQLAdapter captures bindings instead of serving them.
type recordingGQLAdapter struct {
	bindings []GraphQLBinding
	failWith error
}

func (a *recordingGQLAdapter) BindGraphQL(b GraphQLBinding) error {
	if a.failWith != nil {
		return a.failWith
	}
	a.bindings = append(a.bindings, b)
	return nil
}
