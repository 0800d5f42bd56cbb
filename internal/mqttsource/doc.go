// Package mqttsource is the optional MQTT ingest feed: a paho subscriber
// that decodes JSON readings from a configured topic and pushes them through
// the same gateway as HTTP ingestion. Disabled unless a broker URL is
// configured.
package mqttsource
