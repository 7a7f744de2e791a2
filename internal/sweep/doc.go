// Package sweep walks a parameter space and submits the jobs whose results
// are missing.
//
// For every point (dataset, kind, basis size, temperature, bead count, and
// for analytic jobs the sampling distribution) the Driver resolves the
// namespace, fingerprints the model the result depends on, asks the gate
// whether the stored record already covers the point, and submits a job
// through the scheduler when it does not.
//
// A failure at one point is logged and counted in the Summary; the sweep
// carries on with the next point. Only configuration errors (unknown
// variant, invalid spec, unusable root) abort a run.
package sweep
