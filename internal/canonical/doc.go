// Package canonical turns annotation actions into deterministic text keys.
//
// A key is the JSON text of an action after normalization: tags are emitted in
// ascending order and every tag's phrase list is sorted word by word. Two actions
// with the same tag to phrase-set content always produce byte-identical keys, so
// keys can be compared, hashed and grouped directly.
//
// The text layout matches the common sorted-key JSON dump used by the analysis
// tooling that consumes these keys:
//   - ", " between elements and ": " between a key and its value
//   - non-ASCII and control characters escaped as \uXXXX (lowercase hex, UTF-16
//     surrogate pairs above the BMP)
//   - short escapes for quote, backslash, \n, \r, \t, \b and \f
//
// Canonicalization never modifies its input.
package canonical
