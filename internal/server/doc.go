// Package server provides HTTP routing, middleware, and handlers for the sync service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Handlers
//
// [HealthHandler] answers liveness probes and pings the database.
//
// [WebhookHandler] receives playlist-change notifications and enqueues
// reconciliations on the dispatcher. It answers 202 when the event is
// accepted, 404 for unknown pairs, 409 when sync is disabled for the pair.
//
// [EventHub] upgrades GET /events to a websocket and broadcasts reconciliation
// outcomes to all connected clients. It implements tasks.EventPublisher.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow used by
// the auth commands. It validates the state parameter (CSRF protection),
// exchanges the authorization code for tokens, and sends the result through a
// channel. It only processes one callback to prevent replay attacks.
package server
