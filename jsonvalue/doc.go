// Package jsonvalue models arbitrary JSON-compatible payloads as a tagged sum
// type over null, bool, number, string, array and object.
//
// Skill arguments, skill outputs, tool schemas and context values are all
// carried as Values. Conversion happens only at the wire edge: callers build
// values with the From* constructors or Of, and the transport marshals them
// with encoding/json. Numbers keep their literal text, so large integers and
// exact decimals pass through the client untouched.
package jsonvalue
