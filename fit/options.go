package fit

// Options carries the rendering context used when resolving styles and
// geometry: @media evaluation and viewport-relative units both key off it.
type Options struct {
	ViewportW int
	ViewportH int
}

const (
	defaultViewportW = 1280
	defaultViewportH = 800
)

// DefaultOptions returns options for a desktop-sized viewport.
func DefaultOptions() *Options {
	return &Options{ViewportW: defaultViewportW, ViewportH: defaultViewportH}
}

func (o *Options) viewport() (int, int) {
	w, h := defaultViewportW, defaultViewportH
	if o != nil {
		if o.ViewportW > 0 {
			w = o.ViewportW
		}
		if o.ViewportH > 0 {
			h = o.ViewportH
		}
	}
	return w, h
}
