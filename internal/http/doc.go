// Package http provides HTTP handlers and middleware for the SeatServe API.
//
// The router exposes the following endpoints:
//   - POST /api/auth/signup, POST /api/auth/login: create an account or a session.
//     Response: {"token","expires_at","user":{...}} with the token also surfaced via
//     the `X-Session-Token` header and a `session_token` cookie.
//   - POST /api/auth/logout, POST /api/auth/refresh: revoke or rotate the current
//     session token taken from the cookie, `X-Session-Token` or `Authorization: Bearer`.
//   - POST /api/auth/password-reset, POST /api/auth/password-reset/confirm: request
//     and redeem one-time reset links. The request endpoint always returns 202.
//   - GET|PUT /api/me, PUT /api/me/password: self-service profile and password.
//   - GET /api/desks, GET /api/desks/available?date=, POST /api/desks (admin),
//     DELETE /api/desks/{id} (admin).
//   - GET /api/holidays, POST /api/holidays (admin), DELETE /api/holidays/{id} (admin).
//   - GET /api/bookings?date=&user_id=, POST /api/bookings, DELETE /api/bookings/{id}.
//   - GET /api/calendar?from=&to=: per-day bookability for the caller.
//   - GET /api/snapshot, GET /api/snapshot/stream: the current desks, bookings and
//     holidays, once or as a Server-Sent Events stream of `snapshot` events.
//   - POST /api/suggestions, POST /api/suggestions/commit: rate limited per user.
//   - GET /api/users, PUT /api/users/{id}, DELETE /api/users/{id}: administrators only.
//   - GET /healthz, GET /metrics.
//
// Failures are JSON {"error_code","message","errors"}. Booking policy rejections use
// 409 with error_code BOOKING_<REASON>; an unavailable suggestion backend is 503.
package http
