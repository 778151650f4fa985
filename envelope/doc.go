// Package envelope builds fully-prepared mail messages for the courier.
//
// A Message carries sender, receivers, bodies and attachments in
// provider-agnostic fields and renders itself into a complete MIME document
// on demand. The courier only reads the rendered result; nothing in this
// package touches the wire.
package envelope
