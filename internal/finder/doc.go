// Package finder resolves company phone numbers through the phone finder
// webhook. A run validates its input, tries each company against the
// webhook with a fixed sequence of payload variants and client identities,
// normalizes the first successful answer into a record, and persists the
// records plus a summary.
//
// Runs always complete: malformed input and lookup failures are written to
// the output as error items instead of being returned.
package finder
