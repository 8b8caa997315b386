// Package health serves liveness and readiness checks as JSON.
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//		"redis":     store.Healthcheck(client),
//		"materials": s3.Healthcheck,
//	}))
//
// Checks run in parallel under a shared timeout. Any failure turns the
// readiness response into 503 with per-check errors.
package health
