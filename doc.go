// Package psdmerge flattens layers of a layered image document into a
// single raster.
//
// # Overview
//
// A [Controller] owns a document (see package layer) and the decoded image of
// every image-bearing layer. Merging a set of layers composites them the
// way a layered-image editor shows them: folders are flattened into their
// own canvas before they join their parent, clipped layers stay inside the
// pixels of the layer they clip to, and each layer paints with its opacity
// and blend mode.
//
// # Quick Start
//
//	c, err := psdmerge.Open("document.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	img, err := c.MergeByName("toMerge")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer img.Release()
//	img.SavePNG("toMerge.png")
//
// # Documents
//
// Documents are described by a YAML manifest (package manifest) that lists
// the layer tree bottom-to-top with per-layer images, or are built in code
// with layer.New and layer.NewFolder and passed to [New].
//
// # Debugging
//
// [WithDebugDir] or [Controller.SetDebugDir] enable snapshots: every paint
// step writes the layer image and the resulting canvas as PNG files. Writes
// happen in the background; call [Controller.Flush] before reading them.
//
// # Architecture
//
// The library is organized into:
//   - Public API: Controller, options, logger
//   - layer: layer tree, traversal, blend-mode tags
//   - imagebuf: premultiplied RGBA buffers, pooling, decode and encode
//   - merge: image store, clipping runs, compositing engine, snapshots
//   - manifest: YAML document loader
//   - Internal: blend (compositing operators)
package psdmerge
