package dedupe

// Option configures a deduper.
type Option func(*ringDeduper)

// WithMaxSize sets how many ids are remembered. Values <= 0 make the
// deduper unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *ringDeduper) {
		d.maxSize = maxSize
	}
}
