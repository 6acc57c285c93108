// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start and completion with method, path, status, duration_ms and
the request id assigned by chi's RequestID middleware.

# CORS Middleware

Enable cross-origin requests for frontend access:

	handler := middleware.CORS(mux)

Allows methods GET, POST, PATCH, DELETE, OPTIONS with headers
Content-Type, Authorization, X-Admin-Key.

# Identity

WithIdentity resolves an "Authorization: Bearer" token into a user ID:

	handler := middleware.WithIdentity(auth.NewTokenVerifier(secret, issuer))(mux)
	userID := middleware.UserIDFromContext(r.Context()) // "" when anonymous

Invalid tokens are logged and the request continues anonymously.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
	middleware.ErrorWithDetails(w, http.StatusBadRequest, "Invalid vote data", details)

# Client Info

	ip, userAgent := middleware.ClientInfo(r)

The address comes from X-Forwarded-For (first entry) or X-Real-IP; both
values fall back to "unknown".
*/
package middleware
