package engine

import (
	"github.com/cespare/xxhash/v2"

	"github.com/marcus/galaxy/internal/layout"
)

// SessionColor derives a stable display color from a session id, so the
// same session renders identically across reconnects. The hash feeds a
// vibrant HSL range: full hue circle, saturation 0.7-1.0, lightness
// 0.6-0.8.
func SessionColor(sessionID string) layout.RGB {
	h := xxhash.Sum64String(sessionID)

	hue := float64(h % 360)
	saturation := 0.7 + float64((h>>8)%30)/100
	lightness := 0.6 + float64((h>>16)%20)/100

	return layout.HSL(hue, saturation, lightness)
}
