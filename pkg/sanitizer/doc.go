// Package sanitizer provides input normalization functions for business data.
//
// All normalization functions are idempotent - applying them multiple times
// produces the same result. Functions handle invalid input gracefully,
// typically by returning empty strings rather than errors.
//
// Normalization includes:
//   - Strings: Collapse whitespace, trim leading/trailing spaces
//   - Names: Whitespace normalization, preserving case and special characters
//   - Labels: Lowercase after whitespace normalization - "Meeting Room" becomes "meeting room"
package sanitizer
