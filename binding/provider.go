package binding

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// Component wraps the constructed Binder and aligns with the shared component
// pattern used across sqlbind packages.
type Component struct {
	Binder *Binder
}

// NewComponent builds a binder using the provided configuration, transaction
// coordinator and structured logger. The cleanup currently no-ops but matches
// the lifecycle expectations of other components so it can be extended later.
func NewComponent(cfg Config, coord Coordinator, logger log.Logger) (*Component, func(), error) {
	binder, err := NewBinder(coord, cfg, Dependencies{Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	comp := &Component{Binder: binder}
	cleanup := func() {}
	return comp, cleanup, nil
}

// ProvideBinder exposes the Binder for Wire injection.
func ProvideBinder(comp *Component) *Binder {
	return comp.Binder
}

// ProviderSet collects constructors for Wire integration.
var ProviderSet = wire.NewSet(NewComponent, ProvideBinder)
