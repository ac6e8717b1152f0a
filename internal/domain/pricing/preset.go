package pricing

// Named curves callers can reference instead of passing reserves.
var presets = map[string]Curve{
	"A": {VirtualBase: 100000, VirtualToken: 500000, FeeBps: 30},
	"B": {VirtualBase: 250000, VirtualToken: 350000, FeeBps: 50},
}

// Preset returns the named curve.
func Preset(name string) (Curve, bool) {
	c, ok := presets[name]
	return c, ok
}

// PresetNames lists the accepted preset identifiers in stable order.
func PresetNames() []string {
	return []string{"A", "B"}
}
