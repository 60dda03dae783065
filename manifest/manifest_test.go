package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/psdmerge/imagebuf"
	"github.com/gogpu/psdmerge/layer"
)

func writePNG(t *testing.T, dir, name string, w, h int, r, g, b, a uint8) {
	t.Helper()
	img, err := imagebuf.NewImageBuf(w, h, imagebuf.FormatRGBAPremul)
	if err != nil {
		t.Fatal(err)
	}
	img.Fill(r, g, b, a)
	if err := img.SavePNG(filepath.Join(dir, name)); err != nil {
		t.Fatalf("SavePNG(%s) error = %v", name, err)
	}
}

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "doc.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const sample = `
width: 8
height: 8
layers:
  - name: Background
    image: bg.png
  - name: toMerge
    blend: "div "
    layers:
      - name: Fill
        fill: "#ff8800"
        left: 2
        top: 3
        width: 2
        height: 2
      - name: Overlay
        image: overlay.png
        opacity: 0.5
        clipping: true
  - name: Hidden note
    visible: false
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "bg.png", 4, 4, 0, 0, 255, 255)
	writePNG(t, dir, "overlay.png", 8, 8, 255, 255, 255, 255)

	doc, images, err := Load(writeManifest(t, dir, sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Width() != 8 || doc.Height() != 8 {
		t.Errorf("document size = %dx%d", doc.Width(), doc.Height())
	}

	var got []string
	doc.Walk(func(l *layer.Layer) bool {
		got = append(got, l.Name())
		return true
	})
	want := []string{"Background", "toMerge", "Fill", "Overlay", "Hidden note"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("layer order mismatch (-want +got):\n%s", diff)
	}

	if len(images) != 3 {
		t.Fatalf("got %d images, want 3", len(images))
	}
	if w, h := images[0].Bounds(); w != 4 || h != 4 {
		t.Errorf("Background image is %dx%d", w, h)
	}
	if r, g, b, a := images[1].GetRGBA(0, 0); r != 255 || g != 136 || b != 0 || a != 255 {
		t.Errorf("Fill pixel = (%d,%d,%d,%d), want (255,136,0,255)", r, g, b, a)
	}

	folder := doc.Layers()[1]
	if !folder.IsFolder() || folder.BlendMode() != layer.BlendColorDodge {
		t.Errorf("toMerge folder=%v blend=%v", folder.IsFolder(), folder.BlendMode())
	}
	fill, overlay := folder.Children()[0], folder.Children()[1]
	if fill.Left() != 2 || fill.Top() != 3 || !fill.HasImage() {
		t.Errorf("Fill bounds = %v, image = %v", fill.Bounds(), fill.HasImage())
	}
	if overlay.Opacity() != 0.5 || !overlay.Clipping() || overlay.Width() != 8 {
		t.Errorf("Overlay opacity=%v clipping=%v width=%d", overlay.Opacity(), overlay.Clipping(), overlay.Width())
	}
	note := doc.Layers()[2]
	if note.Visible() || note.HasImage() {
		t.Errorf("Hidden note visible=%v image=%v", note.Visible(), note.HasImage())
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing size", "layers: []"},
		{"negative size", "width: 2\nheight: 2\nlayers:\n  - name: a\n    fill: '#fff'\n    width: -1\n    height: 1"},
		{"folder with pixels", "width: 2\nheight: 2\nlayers:\n  - name: f\n    fill: '#fff'\n    width: 1\n    height: 1\n    layers:\n      - name: a"},
		{"image and fill", "width: 2\nheight: 2\nlayers:\n  - name: a\n    image: a.png\n    fill: '#fff'"},
		{"fill without size", "width: 2\nheight: 2\nlayers:\n  - name: a\n    fill: '#fff'"},
		{"bad colour", "width: 2\nheight: 2\nlayers:\n  - name: a\n    fill: 'orange'\n    width: 1\n    height: 1"},
		{"opacity out of range", "width: 2\nheight: 2\nlayers:\n  - name: a\n    opacity: 2"},
		{"image size mismatch", "width: 2\nheight: 2\nlayers:\n  - name: a\n    image: a.png\n    width: 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writePNG(t, dir, "a.png", 2, 2, 0, 0, 0, 255)
			_, _, err := Load(writeManifest(t, dir, tt.body))
			if !errors.Is(err, ErrInvalidManifest) {
				t.Errorf("Load() error = %v, want ErrInvalidManifest", err)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := Load(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Error("Load(absent) = nil error")
	}

	path := writeManifest(t, dir, "width: 2\nheight: 2\nlayers:\n  - name: a\n    image: missing.png")
	if _, _, err := Load(path); err == nil || errors.Is(err, ErrInvalidManifest) {
		t.Errorf("missing image error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "empty.png"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	path = writeManifest(t, dir, "width: 2\nheight: 2\nlayers:\n  - name: a\n    image: empty.png")
	if _, _, err := Load(path); !errors.Is(err, imagebuf.ErrEmptyData) {
		t.Errorf("empty image error = %v, want ErrEmptyData", err)
	}

	if _, err := Parse([]byte("width: 2\nheight: 2\ncolour: red")); err == nil {
		t.Error("Parse() accepted an unknown key")
	}
}

func TestEmptyFolder(t *testing.T) {
	f, err := Parse([]byte("width: 2\nheight: 2\nlayers:\n  - name: empty\n    folder: true"))
	if err != nil {
		t.Fatal(err)
	}
	doc, images, err := f.Build(t.TempDir())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(images) != 0 || !doc.Layers()[0].IsFolder() {
		t.Errorf("images=%d folder=%v", len(images), doc.Layers()[0].IsFolder())
	}
}
