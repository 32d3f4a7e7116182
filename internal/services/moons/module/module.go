// Package module wires up the moons service as a module
package module

import (
	"moonmining/internal/core/valuation"
	"moonmining/internal/modkit"
	modreg "moonmining/internal/modkit/module"
	"moonmining/internal/services/moons/domain"
	"moonmining/internal/services/moons/repo"
	"moonmining/internal/services/moons/service"
)

// Name is the registry name of the module
const Name = "moons"

// Ports exposed by the moons module
type Ports struct {
	Resolver domain.ResolverPort
	Products domain.ProductsPort
}

// Module implements the moons service module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the moons module; cat prices moon compositions
func New(deps modkit.Deps, cat valuation.Catalogue) *Module {
	opts := FromConfig(deps.Cfg)

	svc := service.New(deps.PG, repo.NewPG(), cat, service.Config{VolumePerMonth: opts.VolumePerMonth})

	m := &Module{deps: deps}
	m.ports = Ports{Resolver: svc, Products: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return Name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Register makes the module's ports resolvable through the registry
func Register(deps modkit.Deps, cat valuation.Catalogue) *Module {
	m := New(deps, cat)
	modreg.Register(Name, m.ports)
	return m
}
