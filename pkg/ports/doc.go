/*
Package ports defines the driven ports (interfaces) of the plotline pipeline.

These interfaces decouple the orchestrator from the external services it relays to,
allowing every stage to be backed by a real adapter (OpenAI, Gemini, Convertio, a local
process) or by a fake in tests.

# Key Interfaces

  - PromptExpander: turns a concept into a generation prompt.
  - ImageGenerator: turns a prompt into a raster reference (URL or data URL).
  - RasterFetcher: downloads a raster reference.
  - Vectorizer: converts a raster file into an SVG file.
  - Allocator: reserves a collision-free bundle directory.
  - DistributedLocker: provides cross-process locking for the sequential allocator.
  - ArchivePublisher: uploads a finished archive and returns a shareable reference.
*/
package ports
