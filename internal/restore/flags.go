package restore

// Flags are per-request overrides of the configured restore options. Nil
// fields keep the configured value.
type Flags struct {
	Restore      *bool `json:"restore,omitempty"`
	HardReattach *bool `json:"hard_reattach,omitempty"`
	SpaceNudge   *bool `json:"space_nudge,omitempty"`
}

// Apply returns opts with the overrides applied.
func (f Flags) Apply(opts Options) Options {
	if f.Restore != nil {
		opts.Enabled = *f.Restore
	}
	if f.HardReattach != nil {
		opts.HardReattach = *f.HardReattach
	}
	if f.SpaceNudge != nil {
		opts.SpaceNudge = *f.SpaceNudge
	}
	return opts
}
