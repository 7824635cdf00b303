// Package schema provides the JSON-schema subset applied to tool
// parameters and results.
//
// The subset covers type checks (object, array, string, integer, number,
// boolean, null), required fields, string length and pattern constraints,
// numeric ranges, enum membership, nested object and array schemas, and
// default values for absent optional fields. Defaults are substituted
// during validation, not merely documented: omitting an optional field
// with a default produces the same normalized value as supplying it
// explicitly.
//
// Validation is a pure function of (schema, value). Data errors are
// reported as a list of Violations naming the failing field path; only a
// malformed schema fragment itself produces an error, and descriptors
// surface that at load time via CheckSchema. A full JSON-Schema
// implementation is deliberately out of scope.
package schema
