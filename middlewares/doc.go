// Package middlewares provides net/http middleware for the campaign API.
//
// All middlewares have the chi-compatible shape func(http.Handler) http.Handler:
//
//	r := chi.NewRouter()
//	r.Use(middlewares.RequestID())
//	r.Use(middlewares.Logging(log))
//	r.Use(middlewares.Recover(log))
//	r.Use(middlewares.CORS(middlewares.CORSConfig{AllowOrigins: []string{"*"}}))
//
//	limiter := middlewares.NewRateLimiter(5,
//		middlewares.WithTrustedProxies(netip.MustParsePrefix("10.0.0.0/8")))
//	defer limiter.Stop()
//	r.With(limiter.Middleware).Post("/api/credentials/verify", verify)
//
// The limiter keys clients by remote address. Forwarding headers count only
// when the peer is a trusted proxy.
//
// RequestID stores the ID with logger.WithRequestID, so loggers built with
// logger.RequestIDExtractor tag every record of the request.
package middlewares
