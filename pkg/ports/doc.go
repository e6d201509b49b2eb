/*
Package ports defines the boundary interfaces of the simulator.

Following Hexagonal Architecture, the core exposes small interfaces here
and adapters (memory, redis, HTTP, MCP) implement or consume them without
the core knowing about them.
*/
package ports
