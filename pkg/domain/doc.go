/*
Package domain contains the core models of the leadflow conversation engine.

It defines the scripted flow graph, the per-session conversation state, the lead record
collected along the way and the payload handed back to chat clients. The package is pure:
no I/O, no persistence and no transport concerns live here.

# Key Entities

  - FlowNode: a point in the scripted graph (Choice, OpenInput, Action or Plain).
  - Definition: the immutable, validated node graph loaded at startup.
  - SessionState: where a single conversation currently is and what it has collected.
  - Lead: the prospect record enriched by answers and scoring.
  - RenderPayload: what the chat client should show after a turn.
*/
package domain
