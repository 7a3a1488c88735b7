package pipeline

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/buildgridgo/internal/buildenv"
	"github.com/zclconf/go-cty/cty"
)

// EvalContext builds the variable scope pipeline expressions evaluate
// in: the startup environment snapshot under "env" and the derived build
// parameters under "build".
func EvalContext(env map[string]string, build *buildenv.Build) *hcl.EvalContext {
	envVals := make(map[string]cty.Value, len(env))
	for name, value := range env {
		envVals[name] = cty.StringVal(value)
	}
	envVal := cty.MapValEmpty(cty.String)
	if len(envVals) > 0 {
		envVal = cty.MapVal(envVals)
	}

	buildVal := cty.ObjectVal(map[string]cty.Value{
		"provider":     cty.StringVal(build.Provider),
		"branch":       cty.StringVal(build.Branch),
		"commit":       cty.StringVal(build.Commit),
		"build_number": cty.StringVal(build.BuildNumber),
		"version":      cty.StringVal(build.Version),
		"test_type":    cty.StringVal(build.TestType),
		"db": cty.ObjectVal(map[string]cty.Value{
			"engine": cty.StringVal(build.Database.Engine),
			"host":   cty.StringVal(build.Database.Host),
			"port":   cty.StringVal(build.Database.Port),
			"image":  cty.StringVal(build.Database.Image),
		}),
	})

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":   envVal,
			"build": buildVal,
		},
	}
}
