package blend

import "testing"

func TestSeparableModes(t *testing.T) {
	gray := pixel{128, 128, 128, 255}

	tests := []struct {
		name string
		f    Func
		s, d pixel
		want pixel
	}{
		{"multiply gray by gray", blendMultiply, gray, gray, pixel{64, 64, 64, 255}},
		{"multiply by white is identity", blendMultiply, pixel{255, 255, 255, 255}, pixel{10, 90, 200, 255}, pixel{10, 90, 200, 255}},
		{"screen with white", blendScreen, pixel{255, 255, 255, 255}, gray, pixel{255, 255, 255, 255}},
		{"darken", blendDarken, pixel{200, 100, 50, 255}, pixel{100, 150, 50, 255}, pixel{100, 100, 50, 255}},
		{"lighten", blendLighten, pixel{200, 100, 50, 255}, pixel{100, 150, 50, 255}, pixel{200, 150, 50, 255}},
		{"color dodge black is identity", blendColorDodge, pixel{0, 0, 0, 255}, gray, gray},
		{"color dodge white saturates", blendColorDodge, pixel{255, 255, 255, 255}, gray, pixel{255, 255, 255, 255}},
		{"color dodge half doubles", blendColorDodge, gray, pixel{64, 64, 64, 255}, gray},
		{"color burn white is identity", blendColorBurn, pixel{255, 255, 255, 255}, gray, gray},
		{"color burn black", blendColorBurn, pixel{0, 0, 0, 255}, gray, pixel{0, 0, 0, 255}},
		{"difference", blendDifference, pixel{200, 50, 0, 255}, pixel{50, 200, 0, 255}, pixel{150, 150, 0, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apply(tt.f, tt.s, tt.d); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeparableBlendTransparent(t *testing.T) {
	modes := map[string]Func{
		"multiply":    blendMultiply,
		"screen":      blendScreen,
		"color dodge": blendColorDodge,
		"difference":  blendDifference,
	}
	for name, f := range modes {
		t.Run(name, func(t *testing.T) {
			d := pixel{10, 20, 30, 40}
			if got := apply(f, pixel{}, d); got != d {
				t.Errorf("transparent source: got %v, want destination %v", got, d)
			}
			s := pixel{50, 60, 70, 80}
			if got := apply(f, s, pixel{}); got != s {
				t.Errorf("transparent destination: got %v, want source %v", got, s)
			}
		})
	}
}
