// Package cli implements accountctl, an interactive console for operators.
//
// It runs the account lifecycle service in process against the configured
// store and offers listing, bulk moderation, registration on behalf of a
// user and password reset requests.
package cli
