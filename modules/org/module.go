package org

import (
	"github.com/iota-uz/organi-flow/modules/org/domain/orgtree"
	"github.com/iota-uz/organi-flow/modules/org/presentation/controllers"
	"github.com/iota-uz/organi-flow/modules/org/seed"
	"github.com/iota-uz/organi-flow/modules/org/services"
	"github.com/iota-uz/organi-flow/pkg/application"
)

type ModuleOptions struct {
	// SeedPath names a seed file; empty uses seed.Default().
	SeedPath   string
	APIName    string
	APIVersion string
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{opts: opts}
}

type Module struct {
	opts *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	root, err := m.loadSeed()
	if err != nil {
		return err
	}

	org, err := services.NewOrgService(root, services.WithPublisher(app.EventPublisher()))
	if err != nil {
		return err
	}
	app.RegisterServices(org)
	app.EventPublisher().Subscribe(services.NewChangeAuditor(app.Logger()).Handle)

	app.RegisterControllers(
		controllers.NewOrgAPIController(app, m.opts.APIName, m.opts.APIVersion),
	)
	return nil
}

func (m *Module) loadSeed() (*orgtree.Employee, error) {
	if m.opts.SeedPath == "" {
		return seed.Default(), nil
	}
	return seed.Load(m.opts.SeedPath)
}

func (m *Module) Name() string {
	return "org"
}
