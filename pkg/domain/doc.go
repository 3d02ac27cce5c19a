/*
Package domain contains the core models of the plotline artifact pipeline.

It defines the values threaded through one pipeline run and the geometry consumed by the
motion converter. The package is kept pure and free of I/O so that every adapter (CLI, HTTP,
MCP) and every stage implementation shares one vocabulary.

# Key Entities

  - ArtifactBundle: the on-disk location and per-stage outputs of one run.
  - GenerationPrompt: the expanded prompt, flagged when the fallback prompt was used.
  - VectorPathSet: ordered subpaths of line/curve segments parsed from vector outlines.
  - MotionProgram: the ordered rapid/linear instructions emitted for a plotter.
  - StageError: a fatal failure tagged with the stage and error kind that produced it.
  - LifecycleHooks: observability callbacks fired around every stage.
*/
package domain
