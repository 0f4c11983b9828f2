// Package telemetry provides frame.Observer implementations that export
// frame loop activity to Prometheus and OpenTelemetry.
//
// # Prometheus Metrics
//
// Metrics counts frames, consumer evaluations and listener fan-out:
//
//	reg := prometheus.NewRegistry()
//	m := telemetry.NewMetrics(
//	    telemetry.WithNamespace("myapp"),
//	    telemetry.WithRegistry(reg),
//	)
//	loop := frame.NewRegistry(h, frame.WithObserver(m))
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// Metrics collected (default namespace "framehook"):
//   - framehook_frames_total: frames that evaluated at least one consumer
//   - framehook_frame_duration_seconds: time spent evaluating consumers per frame
//   - framehook_consumers: currently attached consumers
//   - framehook_looping: 1 while a frame request is outstanding
//   - framehook_evaluations_total: tracked func invocations
//   - framehook_skipped_total: stopped consumers passed over
//   - framehook_notifications_total: evaluations whose change func approved
//   - framehook_listener_calls_total: individual listener invocations
//   - framehook_consumer_panics_total: recovered panics by phase
//
// # OpenTelemetry
//
// Tracer records one span per frame, with consumer panics attached as span
// errors. It uses the global tracer provider unless one is supplied:
//
//	t := telemetry.NewTracer(
//	    telemetry.WithTracerName("my-app"),
//	    telemetry.WithSampleEvery(60), // one frame per second at 60 fps
//	)
//	loop := frame.NewRegistry(h, frame.WithObserver(frame.Observers(m, t)))
package telemetry
