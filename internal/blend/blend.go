// Package blend implements the compositing operators used to flatten layers.
//
// All operators work with premultiplied alpha values in the range 0-255.
//
// References:
//   - Porter-Duff: "Compositing Digital Images" (1984)
//   - W3C Compositing and Blending Level 1: https://www.w3.org/TR/compositing-1/
package blend

// Operator selects how a source image merges onto a destination.
type Operator uint8

const (
	OpSourceOver Operator = iota // S + D*(1-Sa) [default]
	OpSourceAtop                 // S*Da + D*(1-Sa)
	OpPlus                       // min(S + D, 255)
	OpMultiply                   // B = Cb * Cs
	OpScreen                     // B = 1 - (1-Cb)*(1-Cs)
	OpDarken                     // B = min(Cb, Cs)
	OpLighten                    // B = max(Cb, Cs)
	OpColorDodge                 // B = min(1, Cb / (1-Cs))
	OpColorBurn                  // B = 1 - min(1, (1-Cb) / Cs)
	OpDifference                 // B = |Cb - Cs|

	operatorCount
)

// Func is the per-pixel signature of an operator.
// All values are premultiplied alpha, 0-255.
type Func func(sr, sg, sb, sa, dr, dg, db, da byte) (r, g, b, a byte)

var funcs = [operatorCount]Func{
	OpSourceOver: blendSourceOver,
	OpSourceAtop: blendSourceAtop,
	OpPlus:       blendPlus,
	OpMultiply:   blendMultiply,
	OpScreen:     blendScreen,
	OpDarken:     blendDarken,
	OpLighten:    blendLighten,
	OpColorDodge: blendColorDodge,
	OpColorBurn:  blendColorBurn,
	OpDifference: blendDifference,
}

var names = [operatorCount]string{
	OpSourceOver: "Over",
	OpSourceAtop: "Atop",
	OpPlus:       "Plus",
	OpMultiply:   "Multiply",
	OpScreen:     "Screen",
	OpDarken:     "Darken",
	OpLighten:    "Lighten",
	OpColorDodge: "ColorDodge",
	OpColorBurn:  "ColorBurn",
	OpDifference: "Difference",
}

// FuncFor returns the pixel function for op.
// Unknown operators fall back to source-over.
func FuncFor(op Operator) Func {
	if op >= operatorCount {
		return blendSourceOver
	}
	return funcs[op]
}

// String returns the operator name used in snapshot file names.
func (op Operator) String() string {
	if op >= operatorCount {
		return "Over"
	}
	return names[op]
}
