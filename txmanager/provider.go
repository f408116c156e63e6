package txmanager

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// Component wraps the constructed Manager and Coordinator and aligns with the
// shared component pattern used across sqlbind packages.
type Component struct {
	Manager     Manager
	Coordinator Coordinator
}

// NewComponent builds a transaction manager using the provided configuration
// and structured logger. The cleanup currently no-ops but matches the
// lifecycle expectations of other components so it can be extended later.
func NewComponent(cfg Config, logger log.Logger) (*Component, func(), error) {
	manager, err := NewManager(cfg, Dependencies{Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	comp := &Component{Manager: manager, Coordinator: NewCoordinator()}
	cleanup := func() {}
	return comp, cleanup, nil
}

// ProvideManager exposes the Manager interface for Wire injection.
func ProvideManager(comp *Component) Manager {
	return comp.Manager
}

// ProvideCoordinator exposes the Coordinator for Wire injection.
func ProvideCoordinator(comp *Component) Coordinator {
	return comp.Coordinator
}

// ProviderSet collects constructors for Wire integration.
var ProviderSet = wire.NewSet(NewComponent, ProvideManager, ProvideCoordinator)
