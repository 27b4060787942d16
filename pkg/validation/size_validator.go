package validation

const bytesPerMB = 1024 * 1024

// DefaultMaxImageSizeMB is the image limit used when none is configured
const DefaultMaxImageSizeMB = 1.0

// ExceedsLimit reports whether a payload of the given length is larger than limitMB
func ExceedsLimit(payloadLen int, limitMB float64) bool {
	return float64(payloadLen)/bytesPerMB > limitMB
}

// SizeGuard holds the configured image size limit
type SizeGuard struct {
	limitMB float64
}

// NewSizeGuard creates a guard, falling back to DefaultMaxImageSizeMB for non-positive limits
func NewSizeGuard(limitMB float64) SizeGuard {
	if limitMB <= 0 {
		limitMB = DefaultMaxImageSizeMB
	}
	return SizeGuard{limitMB: limitMB}
}

// LimitMB returns the configured limit
func (g SizeGuard) LimitMB() float64 {
	return g.limitMB
}

// Exceeds reports whether the payload is over the limit
func (g SizeGuard) Exceeds(payload []byte) bool {
	return ExceedsLimit(len(payload), g.limitMB)
}
