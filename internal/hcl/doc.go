// Package hcl provides the concrete HCL implementation of config.Loader. It
// parses the parameter file, evaluates its expressions against a small
// evaluation context, and translates the decoded blocks into config.Params.
//
// A parameter file looks like:
//
//	eddy {
//	  eddy_task  = "fsleddy"
//	  eddy_nproc = nproc
//	}
//
//	fsl_eddy {
//	  acqp  = "${bids_data_dir}/acqp.txt"
//	  index = "${bids_data_dir}/index.txt"
//	}
//
// Every block and attribute is optional; unknown blocks and attributes are
// errors.
package hcl
