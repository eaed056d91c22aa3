/*
Package nodes implements the atomic workflow nodes.

Each node is a single named step with a fixed contract over *domain.State.
Nodes are built once with their collaborators injected through a Config
struct and reused across conversations; they hold no per-conversation state.

Failures are recorded as error tags on State.Errors and the workflow keeps
going. Only nodes configured with FailRaise (or EmptyRaise for Transform)
return an error from Run, always as a *NodeError.

# Nodes

  - Extract: primary or fallback extraction of one field, in priority order.
  - Validate: schema validation of a record with log/clear/raise policies.
  - Gate: confidence threshold decision for the branching layer.
  - Scan: retroactive extraction over recent history.
  - Merge: confidence-arbitrated write of a record.
  - Call: external HTTP call with retry classification.
  - Dispatch: outbound message through a Transport.
  - Transform: pure derivation from one path to another.
  - Condition: predicate evaluation for branching.
  - Group: resume router and step state machine for multi-turn sub-flows.
*/
package nodes
