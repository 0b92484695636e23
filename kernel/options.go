package kernel

// Option configures a kernel at construction.
type Option func(*options)

type options struct {
	label    string
	edgeMode EdgeMode
	offset   Offset
	clip     Region
}

func defaultOptions() options {
	return options{
		edgeMode: EdgeModeZero,
		clip:     NoClip,
	}
}

// WithLabel sets the debug label used for the kernel's GPU objects.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithEdgeMode sets the initial edge mode. The default is EdgeModeZero.
func WithEdgeMode(mode EdgeMode) Option {
	return func(o *options) {
		o.edgeMode = mode
	}
}

// WithOffset sets the initial source offset.
func WithOffset(off Offset) Option {
	return func(o *options) {
		o.offset = off
	}
}

// WithClipRect sets the initial clip rectangle. The default is NoClip.
func WithClipRect(r Region) Option {
	return func(o *options) {
		o.clip = r
	}
}
