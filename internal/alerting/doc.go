// Package alerting implements the rule engine of the pipeline: a threshold
// rule on raw temperature and a predictive rule on the scored failure
// probability, with per-(device, kind, rule) cooldown deduplication so a
// sustained anomaly produces one alert instead of a storm.
//
// Alerts are terminal here; acknowledgement and closure belong to the
// downstream maintenance system.
package alerting
