// Package api provides the JSON REST API server for Clausa.
//
// The server uses Go 1.22+ method routing with a layered middleware stack:
//
//	Recovery -> RequestID -> Logging -> CORS -> RateLimit -> Routes
//
// Health probes (/health, /ready) bypass the middleware stack via a
// top-level mux so they stay fast and unthrottled.
//
// # Endpoints
//
// Health probes (no middleware):
//   - GET /health: liveness, returns {"status":"ok"}
//   - GET /ready: readiness, pings the database when a pool is configured
//
// Chat:
//   - POST /api/v1/chat: synchronous chat, returns the full response
//   - POST /api/v1/chat/stream: streaming chat over Server-Sent Events
//
// Retrieval:
//   - GET /api/v1/search: similarity search over the contract store
//
// Threads:
//   - GET /api/v1/threads: list conversation threads
//   - GET /api/v1/threads/{id}/messages: get a thread's messages
//   - DELETE /api/v1/threads/{id}: delete a thread and its messages
//
// Stats:
//   - GET /api/v1/stats: document and thread counts
//
// When a web handler is configured it is mounted at "/" behind the same
// middleware stack, serving the chat UI.
package api
