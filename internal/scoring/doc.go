// Package scoring turns a device's feature context into a failure-risk
// probability.
//
// Three providers implement the Provider interface: Heuristic (pure local
// formula, cannot fail), External (self-hosted scoring service over HTTP),
// and Cloud (generative-AI scoring call). Chain orders them by configured
// priority with the heuristic always last, so scoring as a whole never
// fails — a provider timeout, bad response, or out-of-range value advances
// the chain to the next provider.
package scoring
