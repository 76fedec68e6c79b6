// package services defines interface Service for interacting with streaming APIs
//
// Spotify, Apple Music
//
// Each provider wraps its REST API behind the shared [Service] interface so the
// transfer and sync engines never see provider-specific payloads. Requests are
// throttled client-side with a token bucket per provider; when the remote API
// rate limits anyway the error surfaces to the caller, there is no automatic
// retry.
package services
