// Package action exposes gift operations as host-framework actions: a name, a
// prompt-style description, a JSON input schema and an invoke function over
// loosely typed arguments.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"giftrails/internal/wallet"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/mitchellh/mapstructure"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidArgs   = errors.New("invalid arguments")
)

// Outcome is what a successful action reports back to the host.
type Outcome struct {
	Message string `json:"message"`
	TxHash  string `json:"txHash,omitempty"`
	TxLink  string `json:"txLink,omitempty"`
}

// Action is a named operation with a typed input behind a schema.
type Action struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema

	resolved *jsonschema.Resolved
	run      func(ctx context.Context, w wallet.Wallet, args map[string]any) (Outcome, error)
	failure  func(error) string
}

// Spec is the JSON form of an action's metadata.
type Spec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

// Define builds an action whose arguments decode into In. Every field of In
// without omitempty in its json tag is required.
func Define[In any](
	name, description string,
	run func(ctx context.Context, w wallet.Wallet, in In) (Outcome, error),
	failure func(error) string,
) (*Action, error) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("%s: infer schema: %w", name, err)
	}
	schema.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("%s: resolve schema: %w", name, err)
	}

	a := &Action{
		Name:        name,
		Description: description,
		Schema:      schema,
		resolved:    resolved,
		failure:     failure,
	}
	a.run = func(ctx context.Context, w wallet.Wallet, args map[string]any) (Outcome, error) {
		var in In
		if err := mapstructure.Decode(args, &in); err != nil {
			return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
		return run(ctx, w, in)
	}
	return a, nil
}

// Validate checks args against the input schema.
func (a *Action) Validate(args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	if err := a.resolved.Validate(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}

// Run validates and executes the action, returning a typed error on failure.
func (a *Action) Run(ctx context.Context, w wallet.Wallet, args map[string]any) (Outcome, error) {
	if err := a.Validate(args); err != nil {
		return Outcome{}, err
	}
	return a.run(ctx, w, args)
}

// Invoke runs the action the way a host agent framework does: the result is
// always a message, with failures rendered as a single error string.
func (a *Action) Invoke(ctx context.Context, w wallet.Wallet, args map[string]any) string {
	out, err := a.Run(ctx, w, args)
	if err != nil {
		return a.FailureMessage(err)
	}
	return out.Message
}

// FailureMessage renders err the way Invoke reports it.
func (a *Action) FailureMessage(err error) string {
	if a.failure != nil {
		return a.failure(err)
	}
	return fmt.Sprintf("Error in %s: %v", a.Name, err)
}

func (a *Action) Spec() Spec {
	return Spec{Name: a.Name, Description: a.Description, InputSchema: a.Schema}
}

// Registry holds actions by name.
type Registry struct {
	actions map[string]*Action
}

func NewRegistry(actions ...*Action) (*Registry, error) {
	r := &Registry{actions: make(map[string]*Action, len(actions))}
	for _, a := range actions {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(a *Action) error {
	if a == nil || a.Name == "" {
		return fmt.Errorf("action name is required")
	}
	if _, dup := r.actions[a.Name]; dup {
		return fmt.Errorf("action %q already registered", a.Name)
	}
	r.actions[a.Name] = a
	return nil
}

func (r *Registry) Lookup(name string) (*Action, error) {
	a, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return a, nil
}

// Specs lists action metadata sorted by name.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a.Spec())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DecodeArgs turns a JSON object into an argument map.
func DecodeArgs(raw []byte) (map[string]any, error) {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return args, nil
}
