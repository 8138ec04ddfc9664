// Package protocol defines the wire format between the unibuild CLI and
// daemon.
//
// Messages are newline-delimited JSON envelopes carrying a command name and
// an optional payload. Each connection performs one request/response
// exchange.
package protocol
