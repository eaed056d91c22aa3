/*
Package observability turns engine lifecycle events into logs and metrics.

Both helpers return domain.LifecycleHooks, so they compose with Merge:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := metrics.Hooks().Merge(observability.LogHooks(logger))
*/
package observability
