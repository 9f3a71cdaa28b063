// Package writers serializes run reports.
//
// Design:
//   • One registry maps an output format to its report writer.
//   • JSON/JSONL go through pkg/api (v1) for a stable wire format.
//   • JSONL lines are encoded on a goroutine fed by a channel so callers can
//     stream records as they are produced.
//   • A downstream reader closing early (broken pipe) is not an error.
package writers
