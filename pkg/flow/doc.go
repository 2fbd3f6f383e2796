// Package flow loads, validates and patches conversation flow definitions.
//
// A flow document is JSON or YAML with a list of nodes:
//
//	{
//	  "version": "1.0.0",
//	  "start": "welcome",
//	  "nodes": [
//	    {"id": "welcome", "text": "Hi!", "next": "budget"},
//	    {"id": "budget", "texts": ["How will you pay?"], "signal": "finance",
//	     "choices": [{"title": "Cash", "payload": "cash", "next": "notes"}]},
//	    {"id": "notes", "text": "Anything else?", "openInput": true,
//	     "action": "store_answer", "next": "score"},
//	    {"id": "score", "action": "compute_fit", "next": "bye"},
//	    {"id": "bye", "text": "Thanks!"}
//	  ]
//	}
//
// Each node is compiled once into a domain.FlowNode whose kind is decided by the
// precedence choice > open input > action > plain.
package flow
