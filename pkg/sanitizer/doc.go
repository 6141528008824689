// Package sanitizer normalizes free-text user input before it is validated or
// sent to the clinic backend.
//
// All functions are idempotent: applying them twice yields the same result.
// Invalid input never errors; it normalizes to the empty string or an empty
// slice.
//
// Normalization includes:
//   - Free text: trim leading/trailing whitespace
//   - Names: trim and collapse inner whitespace runs to one space
//   - Search terms: trim, collapse and lowercase
//   - Slices: drop empties and duplicates after normalization
package sanitizer
