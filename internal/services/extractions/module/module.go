// Package module wires up the extractions service as a module
package module

import (
	"moonmining/internal/core/valuation"
	"moonmining/internal/modkit"
	modreg "moonmining/internal/modkit/module"
	"moonmining/internal/modkit/repokit"
	"moonmining/internal/services/extractions/domain"
	"moonmining/internal/services/extractions/repo"
	"moonmining/internal/services/extractions/service"
)

// Name is the registry name of the module
const Name = "extractions"

// Ports exposed by the extractions module
type Ports struct {
	Processor domain.ProcessorPort
	Runner    domain.RunnerPort
}

// Collaborators are the ports of other modules the service drives
type Collaborators struct {
	Catalogue valuation.Catalogue
	Source    domain.EventSource
	Resolver  domain.MoonResolver
	Products  domain.MoonProducts
}

// Module implements the extractions service module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs and wires the extractions module using deps.Cfg
func New(deps modkit.Deps, c Collaborators) *Module {
	opts := FromConfig(deps.Cfg)

	db := deps.PG
	if db != nil {
		db = repokit.WithBeginHooks(db, repokit.LockTimeout(opts.LockTimeout))
	}
	svc := service.New(db, repo.NewPG(), c.Catalogue, service.Config{
		Workers:        opts.Workers,
		UpsertRetries:  opts.UpsertRetries,
		RecomputeBatch: opts.RecomputeBatch,
	})
	svc.Source = c.Source
	svc.Resolver = c.Resolver
	svc.Products = c.Products

	m := &Module{deps: deps}
	m.ports = Ports{Processor: svc, Runner: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return Name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Register makes the module's ports resolvable through the registry
func Register(deps modkit.Deps, c Collaborators) *Module {
	m := New(deps, c)
	modreg.Register(Name, m.ports)
	return m
}
