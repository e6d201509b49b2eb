/*
Package simulation provides the hardware-free execution context a protocol
runs against.

A Context owns a private broker, an append-only registry of the labware
loaded during the run, the merged external data files, and a small virtual
gantry state. Its command methods (PickUpTip, Aspirate, Transfer, ...)
perform no device I/O: each publishes a before lifecycle event, applies the
command's effect on the virtual state, and publishes the matching after
event. Compound commands such as Transfer publish their own span around the
primitive commands they issue, which is what produces nested run logs.

Contexts are explicitly constructed and passed by reference; there is no
process-wide robot singleton. The legacy engine receives a freshly
constructed context with legacy text conventions instead of sharing
connection state.
*/
package simulation
