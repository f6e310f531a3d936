// internal/transport/portconfig.go
package transport

import "fmt"

// LineConfig is an atomic snapshot of a transport's line parameters.
// A snapshot taken with ReadConfiguration can be handed back to
// WriteConfiguration to restore the line exactly as it was.
type LineConfig struct {
	DataRate    uint32 `json:"data_rate"`
	DataBits    uint32 `json:"data_bits"`
	StopBits    uint32 `json:"stop_bits"`
	FlowControl uint32 `json:"flow_control"`
}

// ReadConfiguration queries the four line parameters in a fixed order:
// data rate, data bits, stop bits, flow control. The first failing query
// aborts the read; callers must not use the partially filled result.
func ReadConfiguration(t Transport) (LineConfig, error) {
	var cfg LineConfig
	var err error

	if cfg.DataRate, err = t.GetParam(ParamDataRate); err != nil {
		return cfg, fmt.Errorf("read data rate: %w", err)
	}
	if cfg.DataBits, err = t.GetParam(ParamDataBits); err != nil {
		return cfg, fmt.Errorf("read data bits: %w", err)
	}
	if cfg.StopBits, err = t.GetParam(ParamStopBits); err != nil {
		return cfg, fmt.Errorf("read stop bits: %w", err)
	}
	if cfg.FlowControl, err = t.GetParam(ParamFlowControl); err != nil {
		return cfg, fmt.Errorf("read flow control: %w", err)
	}
	return cfg, nil
}

// WriteConfiguration applies the four line parameters in the same order
// ReadConfiguration queries them. A failure part way through leaves the
// earlier parameters applied; rollback is the caller's responsibility via
// a prior snapshot.
func WriteConfiguration(t Transport, cfg LineConfig) error {
	if err := t.SetParam(ParamDataRate, cfg.DataRate); err != nil {
		return fmt.Errorf("write data rate: %w", err)
	}
	if err := t.SetParam(ParamDataBits, cfg.DataBits); err != nil {
		return fmt.Errorf("write data bits: %w", err)
	}
	if err := t.SetParam(ParamStopBits, cfg.StopBits); err != nil {
		return fmt.Errorf("write stop bits: %w", err)
	}
	if err := t.SetParam(ParamFlowControl, cfg.FlowControl); err != nil {
		return fmt.Errorf("write flow control: %w", err)
	}
	return nil
}
