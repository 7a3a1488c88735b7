package app

import (
	"github.com/vk/buildgridgo/internal/registry"
	"github.com/vk/buildgridgo/modules/buildtool"
	"github.com/vk/buildgridgo/modules/harness"
	"github.com/vk/buildgridgo/modules/publish"
)

// coreModules is the definitive list of all runner modules that are
// compiled into the buildgridgo binary.
var coreModules = []registry.Module{
	&buildtool.Module{},
	&harness.Module{},
	&publish.Module{},
}
