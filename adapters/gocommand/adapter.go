package gocommand

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
)

const (
	CommandNamespace = "carbon.command."
	QueryNamespace   = "carbon.query."
)

var ErrDuplicateMessageType = errors.New("gocommand: message type already registered")

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

// MessageType reads Type() from the zero value of T. T must be a value type.
func MessageType[T any]() (string, error) {
	var zero T
	m, ok := any(zero).(command.Message)
	if !ok {
		return "", fmt.Errorf("gocommand: %T must implement Type() string", zero)
	}
	msgType := strings.TrimSpace(m.Type())
	if msgType == "" {
		return "", fmt.Errorf("gocommand: %T has an empty message type", zero)
	}
	return msgType, nil
}

// RegistryAdapter registers carbon handlers with a go-command registry and
// keeps each message type bound to a single handler.
type RegistryAdapter struct {
	mu       sync.Mutex
	registry *command.Registry
	types    map[string]struct{}
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry, types: map[string]struct{}{}}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

// RegisteredTypes lists the bound message types in lexical order.
func (a *RegistryAdapter) RegisteredTypes() []string {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.types))
	for msgType := range a.types {
		out = append(out, msgType)
	}
	sort.Strings(out)
	return out
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func (a *RegistryAdapter) claim(msgType string, namespace string) error {
	if !strings.HasPrefix(msgType, namespace) {
		return fmt.Errorf("gocommand: message type %q is outside %q", msgType, namespace)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.types[msgType]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMessageType, msgType)
	}
	a.types[msgType] = struct{}{}
	return nil
}

func (a *RegistryAdapter) release(msgType string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.types, msgType)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

// RegisterAndSubscribe binds cmd to its carbon.command.* message type. On
// failure nothing stays subscribed or claimed. Unsubscribing frees the type
// for the dispatcher and the adapter; the go-command registry keeps its entry.
func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	msgType, err := MessageType[T]()
	if err != nil {
		return nil, err
	}
	if err := adapter.claim(msgType, CommandNamespace); err != nil {
		return nil, err
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.registry.RegisterCommand(cmd); err != nil {
		unsubscribe(subscription)
		adapter.release(msgType)
		return nil, err
	}
	return boundSubscription{Subscription: subscription, adapter: adapter, msgType: msgType}, nil
}

// RegisterAndSubscribeQuery binds qry to its carbon.query.* message type.
func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	msgType, err := MessageType[T]()
	if err != nil {
		return nil, err
	}
	if err := adapter.claim(msgType, QueryNamespace); err != nil {
		return nil, err
	}
	subscription := commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	if err := adapter.registry.RegisterCommand(qry); err != nil {
		unsubscribe(subscription)
		adapter.release(msgType)
		return nil, err
	}
	return boundSubscription{Subscription: subscription, adapter: adapter, msgType: msgType}, nil
}

// boundSubscription frees the message type claim when unsubscribed.
type boundSubscription struct {
	commanddispatcher.Subscription
	adapter *RegistryAdapter
	msgType string
}

func (s boundSubscription) Unsubscribe() {
	unsubscribe(s.Subscription)
	s.adapter.release(s.msgType)
}

func unsubscribe(subscription commanddispatcher.Subscription) {
	if subscription != nil {
		subscription.Unsubscribe()
	}
}
