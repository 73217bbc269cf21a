package fsr

import (
	"fmt"
	"strconv"

	"github.com/gogpu/fsr/cvar"
)

// Setting names.
const (
	CvarEnable    = "flt_fsr_enable"
	CvarUpscale   = "flt_fsr_easu"
	CvarSharpen   = "flt_fsr_rcas"
	CvarSharpness = "flt_fsr_sharpness"
)

// Cvars are the registered settings of the stage.
type Cvars struct {
	Enable    *cvar.Var
	Upscale   *cvar.Var
	Sharpen   *cvar.Var
	Sharpness *cvar.Var
}

// RegisterCvars registers the four archived settings with their defaults:
// enable off, upscale on, sharpen on, sharpness 0.2.
func RegisterCvars(reg *cvar.Registry) (*Cvars, error) {
	def := DefaultConfig()
	var c Cvars
	var err error
	if c.Enable, err = reg.Register(CvarEnable, strconv.Itoa(int(def.Enable)), cvar.Archive); err != nil {
		return nil, err
	}
	if c.Upscale, err = reg.Register(CvarUpscale, boolString(def.Upscale), cvar.Archive); err != nil {
		return nil, err
	}
	if c.Sharpen, err = reg.Register(CvarSharpen, boolString(def.Sharpen), cvar.Archive); err != nil {
		return nil, err
	}
	if c.Sharpness, err = reg.Register(CvarSharpness, fmt.Sprint(def.Sharpness), cvar.Archive); err != nil {
		return nil, err
	}
	return &c, nil
}

// Config snapshots the settings for one frame. Sharpness outside
// [MinSharpness, MaxSharpness] is clamped.
func (c *Cvars) Config() Config {
	s := c.Sharpness.Float()
	if cs := ClampSharpness(s); cs != s {
		Logger().Warn("fsr: sharpness out of range, clamped", "value", s, "clamped", cs)
		s = cs
	}
	return Config{
		Enable:    EnableModeFromInt(c.Enable.Int()),
		Upscale:   c.Upscale.Bool(),
		Sharpen:   c.Sharpen.Bool(),
		Sharpness: s,
	}
}

func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
