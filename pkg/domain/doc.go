/*
Package domain contains the core data model of the slotflow engine.

It defines the conversation State threaded through every node of a workflow
invocation, the Turn history entries, extraction results, the error tag
taxonomy and the lifecycle events used for observability. The package holds no
I/O and no global mutable state; persistence and transport live behind the
interfaces in package ports.

# Key Entities

  - State: the single mutable value of one invocation (message, history, field slots, step marker).
  - Turn: one {role, content} entry of the append-only history.
  - Extraction: the result an extractor reports for the current message.
  - TurnDiff: what one invocation changed, for logging and API responses.
*/
package domain
