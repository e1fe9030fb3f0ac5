package ripple

// SignalOption configures a signal at construction time.
type SignalOption func(*signalConfig)

type signalConfig struct {
	name      string
	transient bool
}

// Named labels the signal for diagnostics: cycle errors, instrumentation
// events, and state snapshots all carry the name.
func Named(name string) SignalOption {
	return func(cfg *signalConfig) {
		cfg.name = name
	}
}

// Transient excludes the signal from state snapshots. Use it for values
// that must not outlive the process, like tokens or per-connection state.
func Transient() SignalOption {
	return func(cfg *signalConfig) {
		cfg.transient = true
	}
}
