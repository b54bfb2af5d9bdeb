package lifecycle

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Named lets a component label itself in runtime logs.
type Named interface {
	Name() string
}

// Runtime starts components in registration order and stops the started
// ones in reverse. A failed Start rolls back everything started so far.
type Runtime struct {
	components []Component
	started    []Component
}

func NewRuntime(components ...Component) *Runtime {
	return &Runtime{components: components}
}

func (r *Runtime) Register(component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, component)
}

func (r *Runtime) Start(ctx context.Context) error {
	for _, component := range r.components {
		if component == nil {
			continue
		}
		if err := component.Start(ctx); err != nil {
			_ = stopComponents(ctx, r.started)
			r.started = nil
			return fmt.Errorf("start %s: %w", componentName(component), err)
		}
		r.started = append(r.started, component)
		log.WithField("component", componentName(component)).Debug("component started")
	}
	return nil
}

// Stop stops only components whose Start succeeded.
func (r *Runtime) Stop(ctx context.Context) error {
	err := stopComponents(ctx, r.started)
	r.started = nil
	return err
}

func stopComponents(ctx context.Context, components []Component) error {
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		component := components[i]
		if err := component.Stop(ctx); err != nil {
			stopErr = errors.Join(stopErr, fmt.Errorf("stop %s: %w", componentName(component), err))
		}
	}
	return stopErr
}

func componentName(component Component) string {
	if named, ok := component.(Named); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", component)
}
