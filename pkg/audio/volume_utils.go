package audio

import "math"

// Volumes at or below this are muted instead of attenuated.
const silentBelow = 0.01

// volumeToPower maps a linear 0..1 volume onto the base-2 exponent used by
// effects.Volume: 1 is unity gain, 0.5 halves the amplitude.
func volumeToPower(vol float64) float64 {
	if vol <= silentBelow {
		return -10
	}
	return math.Log2(vol)
}

func clampVolume(vol float64) float64 {
	switch {
	case math.IsNaN(vol) || vol < 0:
		return 0
	case vol > 1:
		return 1
	}
	return vol
}
