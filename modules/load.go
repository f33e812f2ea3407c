package modules

import (
	"github.com/iota-uz/organi-flow/modules/org"
	"github.com/iota-uz/organi-flow/pkg/application"
	"github.com/iota-uz/organi-flow/pkg/configuration"
)

func BuiltInModules(conf *configuration.Configuration) []application.Module {
	return []application.Module{
		org.NewModule(&org.ModuleOptions{
			SeedPath:   conf.SeedPath,
			APIName:    conf.API.Name,
			APIVersion: conf.API.Version,
		}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	return application.Load(app, externalModules...)
}
