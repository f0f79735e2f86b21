// Package infra groups the adapters that connect the formation engine to the
// outside world: zerolog logging, Prometheus and InfluxDB sinks, Sentry
// reporting and the MQTT plan publisher. Adapters implement interfaces from
// core and are wired together in app.
package infra
