/*
Package labsim simulates execution of laboratory-automation protocols
without touching physical hardware.

A simulation produces a run log: the ordered, nested trace of every
command the protocol issued, with the diagnostic log messages emitted
during each command attached to its span. For unbundled source protocols
run under the current-generation engine, it additionally produces the
contents needed to bundle the protocol with every external resource it
referenced.

The one-stop entry point is Simulate:

	runlog, bundleContents, err := labsim.Simulate(ctx, protocolFile, "proto.json")
	if err != nil {
		// On an execution failure the partial run log is still returned.
	}
	text, err := labsim.FormatRunLog(runlog)

Engine selection is driven by two global settings (the current-generation
engine toggle and the legacy backcompat permission) and the protocol's
declared API level; see the dispatch options for per-call overrides.
*/
package labsim
