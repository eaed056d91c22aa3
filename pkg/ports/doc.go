/*
Package ports defines the interfaces slotflow nodes and the engine depend on.

Workflow authors supply the capability interfaces (extractors, validators,
request builders, ...). Every capability has a Func adapter so a plain
function can be plugged in directly. Infrastructure adapters implement the
driven ports (StateStore, DistributedLocker, Transport, Doer).

# Key Interfaces

  - Extractor / Fallback: pull a field value out of the current message.
  - Validator: check a record against a schema.
  - RequestBuilder / ResponseParser: build and interpret external calls.
  - MessageBuilder / Transport: compose and deliver outbound messages.
  - StateStore: persist conversation State between invocations.
  - DistributedLocker: serialize access to one conversation across replicas.
*/
package ports
