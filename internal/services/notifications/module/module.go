// Package module wires up the notifications service as a module
package module

import (
	"moonmining/internal/modkit"
	modreg "moonmining/internal/modkit/module"
	"moonmining/internal/services/notifications/domain"
	"moonmining/internal/services/notifications/repo"
	"moonmining/internal/services/notifications/service"
)

// Name is the registry name of the module
const Name = "notifications"

// Ports exposed by the notifications module
type Ports struct {
	Store  domain.StorePort
	Source domain.SourcePort
}

// Module implements the notifications service module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the notifications module
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	svc := service.New(deps.PG, repo.NewPG(), service.Config{BatchSize: opts.BatchSize})

	m := &Module{deps: deps}
	m.ports = Ports{Store: svc, Source: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return Name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Register makes the module's ports resolvable through the registry
func Register(deps modkit.Deps) *Module {
	m := New(deps)
	modreg.Register(Name, m.ports)
	return m
}
