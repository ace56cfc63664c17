// Package tddf decodes and encodes fixed-width transaction detail file lines.
//
// A file is split into numbered physical lines, each line is classified by the
// two character record identifier at byte offset 17, and processable record
// types are sliced into typed fields by their schema. Extraction never fails
// on malformed input: a field that cannot be coerced falls back to its raw
// text, or is omitted when the line is too short, and the fallback is reported
// as a Degradation.
package tddf
