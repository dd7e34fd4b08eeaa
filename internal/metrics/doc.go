// Package metrics exports compiler build metrics to Prometheus.
//
// The generator only knows the small Recorder interface declared in the
// root package; this package provides the Prometheus implementation and a
// textfile writer for node_exporter's textfile collector, which suits a
// short-lived CLI better than an HTTP endpoint.
package metrics
