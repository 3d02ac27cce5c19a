/*
Package plotline turns a free-text concept into a program a pen plotter can draw.

A run expands the concept into an image prompt, asks a generative service for a raster,
traces the raster into SVG outlines and converts those outlines into absolute G-code moves.
Every run writes its files into a freshly allocated bundle directory under a storage root.

# Stages

  - expand: a language model rewrites the concept. Failure is not fatal; a fixed fallback
    prompt is used and the result is flagged as degraded.
  - generate: an image service returns a raster reference.
  - allocate: a bundle directory is reserved (sequential names or UUID tokens).
  - download: the raster is stored as generated.<ext>.
  - vectorize: the raster is traced to generated.svg.
  - convert: the outlines become generated.gcode.

Optional thumbnail, archive and publication steps follow a successful run and only ever
produce warnings.

# Usage

	eng, err := plotline.New("./output", plotline.Dependencies{
		Expander:   expander,
		Generator:  generator,
		Fetcher:    fetch.New(),
		Allocator:  allocator.NewSequential(),
		Vectorizer: vectorizer,
	})
	if err != nil {
		log.Fatal(err)
	}

	result, err := eng.Generate(ctx, "a cat sitting on a fence")
	if err != nil {
		var se *domain.StageError
		if errors.As(err, &se) {
			log.Printf("stage %s failed: %s", se.Stage, se.Public())
		}
		return
	}
	fmt.Println(result.Bundle.MotionPath)

The cmd/plotline binary wires these dependencies from configuration and exposes the
engine as a CLI, an HTTP API and an MCP server.
*/
package plotline
