/*
Package domain contains the core domain models for the labsim simulator.

It defines the data contracts shared by every other package: lifecycle
events published on the command topic, the run log and its spans, labware
definitions, bundle contents, and the parsed protocol descriptor. This
package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - LifecycleEvent: A before/after marker published at a command's boundary.
  - Span: One traced command interval, with nesting depth and captured logs.
  - RunLog: The ordered sequence of Spans describing a simulated execution.
  - LabwareDefinition: An opaque labware document identified by a URI.
  - BundleContents: A portable snapshot of a protocol and its resources.
  - Protocol: The parsed protocol descriptor handed to the dispatcher.
*/
package domain
