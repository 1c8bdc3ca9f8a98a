// Package scene models the astronomical scene and instrument configuration
// handed to a coronagraphic calculation engine: a target star, optional
// companions and reference sources, and the instrument settings (filter,
// occulting mask, subarray, detector readout).
//
// Scenes are plain values. The transform helpers return modified copies so a
// scene loaded once can fan out across a parameter sweep without shared
// mutable state.
package scene

import (
	"errors"
	"fmt"
	"math"
	"os"

	json "github.com/KevinWang15/go-json5"
)

// Source is a point source in the scene. Offsets are measured from the scene
// center in arcseconds.
type Source struct {
	Name           string
	SpectralType   string
	NormFluxMJy    float64
	NormWaveMicron float64
	OffsetXArcsec  float64
	OffsetYArcsec  float64
}

// Instrument holds the coronagraphic instrument configuration.
type Instrument struct {
	Name           string // e.g. "nircam", "miri"
	Mode           string // e.g. "coronagraphy"
	Filter         string
	Mask           string
	Subarray       string
	ReadoutPattern string
	NGroups        int
	NInts          int
	NExps          int
}

// Scene couples the sources with the instrument configuration.
type Scene struct {
	Title      string
	Target     Source
	Companions []Source
	Instrument Instrument
}

// Sources returns the target followed by the companions.
func (s Scene) Sources() []Source {
	out := make([]Source, 0, 1+len(s.Companions))
	out = append(out, s.Target)
	out = append(out, s.Companions...)
	return out
}

// Offset returns a copy of the scene with every source moved by
// (dx, dy) arcseconds.
func (s Scene) Offset(dx, dy float64) Scene {
	out := s
	out.Target.OffsetXArcsec += dx
	out.Target.OffsetYArcsec += dy
	out.Companions = make([]Source, len(s.Companions))
	copy(out.Companions, s.Companions)
	for i := range out.Companions {
		out.Companions[i].OffsetXArcsec += dx
		out.Companions[i].OffsetYArcsec += dy
	}
	return out
}

// Rotate returns a copy of the scene with every source offset rotated about
// the scene center by the given angle in degrees, counterclockwise.
func (s Scene) Rotate(deg float64) Scene {
	rad := deg * math.Pi / 180.0
	sin, cos := math.Sincos(rad)
	rot := func(src *Source) {
		x, y := src.OffsetXArcsec, src.OffsetYArcsec
		src.OffsetXArcsec = x*cos - y*sin
		src.OffsetYArcsec = x*sin + y*cos
	}
	out := s
	rot(&out.Target)
	out.Companions = make([]Source, len(s.Companions))
	copy(out.Companions, s.Companions)
	for i := range out.Companions {
		rot(&out.Companions[i])
	}
	return out
}

// Validate checks the scene for values an engine would reject outright.
func (s Scene) Validate() error {
	check := func(src Source, what string) error {
		if src.SpectralType == "" {
			return fmt.Errorf("scene: %s: spectral type is required", what)
		}
		if src.NormFluxMJy <= 0 {
			return fmt.Errorf("scene: %s: flux must be positive, got %g", what, src.NormFluxMJy)
		}
		if src.NormWaveMicron <= 0 {
			return fmt.Errorf("scene: %s: normalization wavelength must be positive, got %g",
				what, src.NormWaveMicron)
		}
		return nil
	}
	if err := check(s.Target, "target"); err != nil {
		return err
	}
	for i, c := range s.Companions {
		what := fmt.Sprintf("companion %d", i)
		if c.Name != "" {
			what = fmt.Sprintf("companion %q", c.Name)
		}
		if err := check(c, what); err != nil {
			return err
		}
	}
	if s.Instrument.Name == "" {
		return errors.New("scene: instrument name is required")
	}
	if s.Instrument.Filter == "" {
		return errors.New("scene: instrument filter is required")
	}
	if s.Instrument.NGroups < 1 || s.Instrument.NInts < 1 || s.Instrument.NExps < 1 {
		return errors.New("scene: detector readout counts must be at least 1")
	}
	return nil
}

// Load reads a JSON5 scene file and validates it field by field. On a format
// problem the returned error names the offending key.
func Load(path string) (Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, fmt.Errorf("attempt to read scene file %q failed: %w", path, err)
	}

	var table map[string]interface{}
	if err := json.Unmarshal(data, &table); err != nil {
		return Scene{}, fmt.Errorf("format error in scene file %q: %w", path, err)
	}

	var s Scene
	if msg, ok := fillScene(table, &s); !ok {
		return Scene{}, fmt.Errorf("scene file %q: %s", path, msg)
	}
	if err := s.Validate(); err != nil {
		return Scene{}, fmt.Errorf("scene file %q: %w", path, err)
	}
	return s, nil
}

func getLeafValue(table map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = table
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func fillScene(table map[string]interface{}, s *Scene) (string, bool) {
	if v, ok := getLeafValue(table, "title"); ok {
		s.Title, ok = v.(string)
		if !ok {
			return "title: is not a string", false
		}
	}

	targetTable, ok := getLeafValue(table, "target")
	if !ok {
		return "target: not found", false
	}
	tm, ok := targetTable.(map[string]interface{})
	if !ok {
		return "target: is not an object", false
	}
	if msg, ok := fillSource(tm, &s.Target, "target"); !ok {
		return msg, false
	}

	if raw, ok := getLeafValue(table, "companions"); ok {
		list, ok := raw.([]interface{})
		if !ok {
			return "companions: is not a list", false
		}
		for i, entry := range list {
			cm, ok := entry.(map[string]interface{})
			if !ok {
				return fmt.Sprintf("companions[%d]: is not an object", i), false
			}
			var c Source
			if msg, ok := fillSource(cm, &c, fmt.Sprintf("companions[%d]", i)); !ok {
				return msg, false
			}
			s.Companions = append(s.Companions, c)
		}
	}

	instTable, ok := getLeafValue(table, "instrument")
	if !ok {
		return "instrument: not found", false
	}
	im, ok := instTable.(map[string]interface{})
	if !ok {
		return "instrument: is not an object", false
	}
	return fillInstrument(im, &s.Instrument)
}

func fillSource(m map[string]interface{}, src *Source, ctx string) (string, bool) {
	str := func(key string, dst *string, required bool) (string, bool) {
		v, ok := m[key]
		if !ok {
			if required {
				return fmt.Sprintf("%s.%s: not found", ctx, key), false
			}
			return "", true
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Sprintf("%s.%s: is not a string", ctx, key), false
		}
		*dst = s
		return "", true
	}
	num := func(key string, dst *float64, required bool) (string, bool) {
		v, ok := m[key]
		if !ok {
			if required {
				return fmt.Sprintf("%s.%s: not found", ctx, key), false
			}
			return "", true
		}
		f, ok := v.(float64)
		if !ok {
			return fmt.Sprintf("%s.%s: is not a number", ctx, key), false
		}
		*dst = f
		return "", true
	}

	if msg, ok := str("name", &src.Name, false); !ok {
		return msg, false
	}
	if msg, ok := str("spectral_type", &src.SpectralType, true); !ok {
		return msg, false
	}
	if msg, ok := num("norm_flux_mjy", &src.NormFluxMJy, true); !ok {
		return msg, false
	}
	if msg, ok := num("norm_wave_micron", &src.NormWaveMicron, true); !ok {
		return msg, false
	}
	if msg, ok := num("offset_x_arcsec", &src.OffsetXArcsec, false); !ok {
		return msg, false
	}
	if msg, ok := num("offset_y_arcsec", &src.OffsetYArcsec, false); !ok {
		return msg, false
	}
	return "", true
}

func fillInstrument(m map[string]interface{}, inst *Instrument) (string, bool) {
	str := func(key string, dst *string, def string, required bool) (string, bool) {
		v, ok := m[key]
		if !ok {
			if required {
				return fmt.Sprintf("instrument.%s: not found", key), false
			}
			*dst = def
			return "", true
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Sprintf("instrument.%s: is not a string", key), false
		}
		*dst = s
		return "", true
	}
	count := func(key string, dst *int, def int) (string, bool) {
		v, ok := m[key]
		if !ok {
			*dst = def
			return "", true
		}
		f, ok := v.(float64)
		if !ok {
			return fmt.Sprintf("instrument.%s: is not a number", key), false
		}
		*dst = int(f)
		return "", true
	}

	if msg, ok := str("name", &inst.Name, "", true); !ok {
		return msg, false
	}
	if msg, ok := str("mode", &inst.Mode, "coronagraphy", false); !ok {
		return msg, false
	}
	if msg, ok := str("filter", &inst.Filter, "", true); !ok {
		return msg, false
	}
	if msg, ok := str("mask", &inst.Mask, "", false); !ok {
		return msg, false
	}
	if msg, ok := str("subarray", &inst.Subarray, "", false); !ok {
		return msg, false
	}
	if msg, ok := str("readout_pattern", &inst.ReadoutPattern, "", false); !ok {
		return msg, false
	}
	if msg, ok := count("ngroups", &inst.NGroups, 1); !ok {
		return msg, false
	}
	if msg, ok := count("nints", &inst.NInts, 1); !ok {
		return msg, false
	}
	if msg, ok := count("nexps", &inst.NExps, 1); !ok {
		return msg, false
	}
	return "", true
}
