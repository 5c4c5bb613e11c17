// Package pipeline provides the classification-and-routing core for incident
// reports. It defines the Service (validation, orchestration, store writes),
// the Engine (external classification, summarization, evaluation, and
// geocoding calls with defensive fallbacks), the keyword prefilter, the
// stream router, and the domain models.
package pipeline
