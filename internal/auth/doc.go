// Package auth implements the credential lifecycle: durable storage of
// the OAuth token record, the one-shot interactive authorization flow,
// and the token manager that keeps handlers supplied with a valid
// access token by refreshing silently when needed.
//
// A deployment holds exactly one token record. The authorize command
// creates it; the token manager is its only writer afterwards.
package auth
