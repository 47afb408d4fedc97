// Package brokertest runs an in-process broker on a Unix domain socket for
// client tests.
//
// Server speaks the newline-delimited envelope protocol, records every
// request it decodes and counts accepted connections so tests can assert on
// connect attempts. Its HandlerFunc decides each reply, including replies a
// real broker would never send: raw frames, hangups and delays. Broker is a
// ready-made handler backed by an in-memory skill registry.
package brokertest
