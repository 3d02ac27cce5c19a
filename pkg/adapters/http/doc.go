// Package http exposes the pipeline as a small JSON API routed with chi.
//
// The API is described by the embedded openapi.yaml, which is validated with kin-openapi
// when the handler is built and served at GET /openapi.yaml. Artifacts are referenced by
// opaque /artifacts/{bundle}/{kind} paths; filesystem locations never leave the server.
package http
