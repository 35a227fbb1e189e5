package hcl

import (
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// envFunc reads an environment variable; unset variables read as "".
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "name", Type: cty.String}},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

// evalContext exposes the run's paths and CPU count to expressions.
func evalContext(vars config.Variables) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"bids_data_dir":   cty.StringVal(vars.BidsDataDir),
			"derivatives_dir": cty.StringVal(vars.DerivativesDir),
			"nproc":           cty.NumberIntVal(int64(vars.Nproc)),
		},
		Functions: map[string]function.Function{
			"env":    envFunc,
			"format": stdlib.FormatFunc,
			"join":   stdlib.JoinFunc,
			"lower":  stdlib.LowerFunc,
			"upper":  stdlib.UpperFunc,
		},
	}
}
