// Package handler wires the domain services to the v1 HTTP API with chi.
//
// Handlers stay thin: validation and JSON shaping live here, every
// business rule lives in the pkg services. Business denials (feature
// gate, preference lock) are 403s with machine-readable codes; storage
// failures are logged and answered as opaque 500s.
package handler
