package layer

import "strings"

// BlendMode is the blend-mode tag of a layer. Tags outside the recognised
// set are kept as-is and composite like BlendNormal.
type BlendMode string

// Recognised blend modes.
const (
	BlendNormal      BlendMode = "normal"
	BlendPassThrough BlendMode = "pass-through"
	BlendMultiply    BlendMode = "multiply"
	BlendScreen      BlendMode = "screen"
	BlendDarken      BlendMode = "darken"
	BlendLighten     BlendMode = "lighten"
	BlendColorDodge  BlendMode = "color-dodge"
	BlendColorBurn   BlendMode = "color-burn"
	BlendLinearDodge BlendMode = "linear-dodge"
	BlendDifference  BlendMode = "difference"
)

// psdKeys maps Photoshop's four-character blend keys to tags.
var psdKeys = map[string]BlendMode{
	"pass": BlendPassThrough,
	"norm": BlendNormal,
	"diss": "dissolve",
	"dark": BlendDarken,
	"mul ": BlendMultiply,
	"idiv": BlendColorBurn,
	"lbrn": "linear-burn",
	"dkCl": "darker-color",
	"lite": BlendLighten,
	"scrn": BlendScreen,
	"div ": BlendColorDodge,
	"lddg": BlendLinearDodge,
	"lgCl": "lighter-color",
	"over": "overlay",
	"sLit": "soft-light",
	"hLit": "hard-light",
	"vLit": "vivid-light",
	"lLit": "linear-light",
	"pLit": "pin-light",
	"hMix": "hard-mix",
	"diff": BlendDifference,
	"smud": "exclusion",
	"fsub": "subtract",
	"fdiv": "divide",
	"hue ": "hue",
	"sat ": "saturation",
	"colr": "color",
	"lum ": "luminosity",
}

// ParseBlendMode converts a blend-mode name or a Photoshop blend key into a
// tag. Names are matched case-insensitively with spaces and underscores
// treated as dashes. An empty string yields BlendNormal.
func ParseBlendMode(s string) BlendMode {
	if s == "" {
		return BlendNormal
	}
	if m, ok := psdKeys[s]; ok {
		return m
	}
	if len(s) < 4 {
		// Keys such as "mul " lose their trailing padding in some exporters.
		if m, ok := psdKeys[s+strings.Repeat(" ", 4-len(s))]; ok {
			return m
		}
	}
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.NewReplacer(" ", "-", "_", "-").Replace(name)
	return BlendMode(name)
}
