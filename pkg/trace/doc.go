/*
Package trace turns the asynchronous stream of command lifecycle events,
interleaved with concurrently emitted diagnostic logs, into a correctly
nested run log.

The Tracer subscribes to a single command topic on a broker and maintains
the nesting depth: each before-event opens a new span at the current depth,
each after-event closes the innermost open span and drains the diagnostic
logs buffered since the previous drain into it. The log interceptor is a
plain slog.Handler that buffers records unformatted; its lifetime is bound
to the tracer and it is detached when the tracer releases its subscription.

One Tracer corresponds to exactly one simulation run.
*/
package trace
