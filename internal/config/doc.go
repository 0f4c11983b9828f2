// Package config loads framehook project configuration.
//
// The configuration is stored in framehook.yaml at the project root, or in
// framehook.json when no YAML file exists. A missing file is not an error:
// the defaults are returned.
//
// # Configuration File Structure
//
//	loop:
//	  fps: 60
//	  maxIdAttempts: 8
//	  recoverPanics: true
//	metrics:
//	  namespace: framehook
//	  processMetrics: false
//	tracing:
//	  tracerName: framehook
//	  sampleEvery: 1
//	server:
//	  enabled: true
//	  addr: 127.0.0.1:9090
//	trace:
//	  capacity: 240
//	  slowFrame: 16ms
//	  s3:
//	    bucket: frame-traces
//	    prefix: framehook/
//	    region: us-east-1
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rtCfg, err := cfg.ToRuntime()
package config
