// Package protocol defines the wire vocabulary exchanged between
// collaboration clients and the server.
//
// Every message travels as a JSON envelope:
//
//	{"type": "<event>", "payload": {...}}
//
// Client-originated types cover identity, room subscription, annotation
// edits, ephemeral cursor/selection updates, and lock requests. Server
// types announce membership changes, relay edits, and report lock
// outcomes. Payloads are decoded lazily: the envelope carries a raw
// payload that handlers decode into the concrete struct for their type.
package protocol
