/*
Package ports defines the driven ports (interfaces) of the leadflow engine.

These interfaces decouple the conversation core from storage, transport and model
providers so that memory, Redis, SQL and file adapters can be swapped freely.

# Key Interfaces

  - SessionStore: persists per-session flow state.
  - DistributedLocker: coordinates session access across replicas.
  - LeadRepository: stores and enriches lead records.
  - TranscriptStore: append-only chat history.
  - TakeoverGate: expiring "a human is handling this session" flags.
  - Classifier: LLM-backed lead classification.
  - ActionHandler: side effects of action nodes.
*/
package ports
