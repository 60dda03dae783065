// Package manifest loads layered documents described in YAML.
//
// A manifest gives the canvas size and the layer tree bottom-to-top. Leaf
// layers take their pixels from an image file (PNG, JPEG, TIFF, BMP or
// WebP, relative to the manifest) or from a solid fill colour. Entries with
// child layers are folders.
//
//	width: 64
//	height: 64
//	layers:
//	  - name: Background
//	    image: bg.png
//	  - name: toMerge
//	    layers:
//	      - name: Fill
//	        fill: "#ff8800"
//	        left: 2
//	        top: 2
//	        width: 8
//	        height: 8
//	      - name: Overlay
//	        image: overlay.png
//	        opacity: 0.5
//	        clipping: true
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/psdmerge/imagebuf"
	"github.com/gogpu/psdmerge/layer"
)

// ErrInvalidManifest is returned for manifests that parse but describe an
// impossible document.
var ErrInvalidManifest = errors.New("manifest: invalid manifest")

// File is the top level of a manifest.
type File struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Layers []Entry `yaml:"layers"`
}

// Entry describes one layer.
type Entry struct {
	Name     string   `yaml:"name"`
	Image    string   `yaml:"image,omitempty"`
	Fill     string   `yaml:"fill,omitempty"`
	Left     int      `yaml:"left,omitempty"`
	Top      int      `yaml:"top,omitempty"`
	Width    int      `yaml:"width,omitempty"`
	Height   int      `yaml:"height,omitempty"`
	Opacity  *float64 `yaml:"opacity,omitempty"`
	Blend    string   `yaml:"blend,omitempty"`
	Clipping bool     `yaml:"clipping,omitempty"`
	Visible  *bool    `yaml:"visible,omitempty"`
	Folder   bool     `yaml:"folder,omitempty"`
	Layers   []Entry  `yaml:"layers,omitempty"`
}

// IsFolder reports whether the entry describes a folder.
func (e *Entry) IsFolder() bool {
	return e.Folder || len(e.Layers) > 0
}

// Load reads the manifest at path and decodes every referenced image.
// The images are returned in the traversal order of the image-bearing
// layers, ready for merge.BuildStore.
func Load(path string) (*layer.Document, []*imagebuf.ImageBuf, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("manifest: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return f.Build(filepath.Dir(path))
}

// Parse decodes manifest YAML. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	return &f, nil
}

// Build creates the document and loads its images. Image paths are
// resolved against dir.
func (f *File) Build(dir string) (*layer.Document, []*imagebuf.ImageBuf, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, nil, fmt.Errorf("%w: document size %dx%d", ErrInvalidManifest, f.Width, f.Height)
	}

	b := &builder{dir: dir, images: make(map[layer.ID]*imagebuf.ImageBuf)}
	doc := layer.NewDocument(f.Width, f.Height)
	for i := range f.Layers {
		l, err := b.build(&f.Layers[i])
		if err != nil {
			b.release()
			return nil, nil, err
		}
		doc.Append(l)
	}

	targets := doc.Descendants(func(l *layer.Layer) bool { return l.HasImage() })
	images := make([]*imagebuf.ImageBuf, len(targets))
	for i, l := range targets {
		images[i] = b.images[l.ID()]
	}
	return doc, images, nil
}

type builder struct {
	dir    string
	images map[layer.ID]*imagebuf.ImageBuf
}

func (b *builder) build(e *Entry) (*layer.Layer, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	opts := []layer.Option{
		layer.WithBounds(e.Left, e.Top, e.Width, e.Height),
		layer.WithClipping(e.Clipping),
	}
	if e.Opacity != nil {
		opts = append(opts, layer.WithOpacity(*e.Opacity))
	}
	if e.Blend != "" {
		opts = append(opts, layer.WithBlendMode(layer.ParseBlendMode(e.Blend)))
	}
	if e.Visible != nil {
		opts = append(opts, layer.WithVisible(*e.Visible))
	}

	if e.IsFolder() {
		folder := layer.NewFolder(e.Name, opts...)
		for i := range e.Layers {
			child, err := b.build(&e.Layers[i])
			if err != nil {
				return nil, err
			}
			folder.Append(child)
		}
		return folder, nil
	}

	img, err := b.pixels(e)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return layer.New(e.Name, opts...), nil
	}

	w, h := img.Bounds()
	opts = append(opts, layer.WithImage(), layer.WithBounds(e.Left, e.Top, w, h))
	l := layer.New(e.Name, opts...)
	b.images[l.ID()] = img
	return l, nil
}

// pixels returns the image of a leaf entry, or nil for a leaf without one.
func (b *builder) pixels(e *Entry) (*imagebuf.ImageBuf, error) {
	switch {
	case e.Image != "":
		path := e.Image
		if !filepath.IsAbs(path) {
			path = filepath.Join(b.dir, path)
		}
		img, err := imagebuf.Load(path)
		if err != nil {
			return nil, fmt.Errorf("manifest: layer %q: %w", e.Name, err)
		}
		w, h := img.Bounds()
		if (e.Width != 0 && e.Width != w) || (e.Height != 0 && e.Height != h) {
			_ = img.Release()
			return nil, fmt.Errorf("%w: layer %q is %dx%d but its image is %dx%d",
				ErrInvalidManifest, e.Name, e.Width, e.Height, w, h)
		}
		return img, nil

	case e.Fill != "":
		c, err := colorful.Hex(e.Fill)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %q: fill %q: %v", ErrInvalidManifest, e.Name, e.Fill, err)
		}
		img, err := imagebuf.NewImageBuf(e.Width, e.Height, imagebuf.FormatRGBAPremul)
		if err != nil {
			return nil, fmt.Errorf("manifest: layer %q: %w", e.Name, err)
		}
		r, g, bl := c.RGB255()
		img.Fill(r, g, bl, 255)
		return img, nil
	}
	return nil, nil
}

func (b *builder) release() {
	for _, img := range b.images {
		_ = img.Release()
	}
}

func (e *Entry) validate() error {
	switch {
	case e.Width < 0 || e.Height < 0:
		return fmt.Errorf("%w: layer %q has negative size %dx%d", ErrInvalidManifest, e.Name, e.Width, e.Height)
	case e.IsFolder() && (e.Image != "" || e.Fill != ""):
		return fmt.Errorf("%w: folder %q has pixels", ErrInvalidManifest, e.Name)
	case e.Image != "" && e.Fill != "":
		return fmt.Errorf("%w: layer %q has both image and fill", ErrInvalidManifest, e.Name)
	case e.Fill != "" && (e.Width == 0 || e.Height == 0):
		return fmt.Errorf("%w: fill layer %q needs width and height", ErrInvalidManifest, e.Name)
	case e.Opacity != nil && (*e.Opacity < 0 || *e.Opacity > 1):
		return fmt.Errorf("%w: layer %q opacity %v outside [0, 1]", ErrInvalidManifest, e.Name, *e.Opacity)
	}
	return nil
}
