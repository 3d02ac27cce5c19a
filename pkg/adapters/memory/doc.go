// Package memory provides bounded in-process adapters: a result store for finished runs
// and a caching decorator for prompt expansion. Both evict least recently used entries.
package memory
