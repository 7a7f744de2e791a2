// Package layout is the namespace authority for on-disk job data.
//
// Every (root, dataset, distribution) triple maps to exactly one directory
// subtree:
//
//	root/
//	  dataset_{D}/
//	    electronic_structure/
//	    parameters/  results/  execution_output/  plots/
//	    distribution_{R}/
//	      parameters/  results/  execution_output/  plots/
//
// Resolve creates the declared directories with MkdirAll, so concurrent
// callers (goroutines or separate processes) never conflict. Distinct
// (dataset, distribution) pairs never share a path, which is what lets
// independent sweeps run without locks.
//
// The path functions on Namespace do no I/O. Downstream consumers (plotting,
// analysis) depend on these names; treat them as a stable contract.
package layout
