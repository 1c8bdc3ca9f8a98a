package scene

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validSceneJSON = `{
    // minimal two-source NIRCam coronagraphy scene
    title: "HR 8799 demo",
    target: {
        name: "HR 8799",
        spectral_type: "A5V",
        norm_flux_mjy: 5.2,
        norm_wave_micron: 2.0,
    },
    companions: [
        {
            name: "HR 8799 e",
            spectral_type: "L5V",
            norm_flux_mjy: 0.001,
            norm_wave_micron: 2.0,
            offset_x_arcsec: 0.4,
            offset_y_arcsec: -0.3,
        },
    ],
    instrument: {
        name: "nircam",
        filter: "f210m",
        mask: "mask210r",
        subarray: "sub640",
        readout_pattern: "medium8",
        ngroups: 10,
        nints: 1,
        nexps: 1,
    },
}`

func writeSceneFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.json5")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing scene file: %v", err)
	}
	return path
}

func TestLoadValidScene(t *testing.T) {
	s, err := Load(writeSceneFile(t, validSceneJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.Title != "HR 8799 demo" {
		t.Errorf("Title = %q", s.Title)
	}
	if s.Target.SpectralType != "A5V" || s.Target.NormFluxMJy != 5.2 {
		t.Errorf("target = %+v", s.Target)
	}
	if len(s.Companions) != 1 {
		t.Fatalf("len(Companions) = %d, want 1", len(s.Companions))
	}
	c := s.Companions[0]
	if c.OffsetXArcsec != 0.4 || c.OffsetYArcsec != -0.3 {
		t.Errorf("companion offsets = (%g, %g)", c.OffsetXArcsec, c.OffsetYArcsec)
	}
	if s.Instrument.Name != "nircam" || s.Instrument.Mode != "coronagraphy" {
		t.Errorf("instrument = %+v", s.Instrument)
	}
	if s.Instrument.NGroups != 10 || s.Instrument.NInts != 1 {
		t.Errorf("readout = %+v", s.Instrument)
	}

	if got := s.Sources(); len(got) != 2 || got[0].Name != "HR 8799" {
		t.Errorf("Sources() = %+v", got)
	}
}

func TestLoadErrorNamesMissingKey(t *testing.T) {
	tests := []struct {
		contents string
		wantMsg  string
	}{
		{`{instrument: {name: "nircam", filter: "f210m"}}`, "target: not found"},
		{`{target: {spectral_type: "G2V", norm_flux_mjy: 1.0, norm_wave_micron: 2.0}}`,
			"instrument: not found"},
		{`{target: {norm_flux_mjy: 1.0, norm_wave_micron: 2.0},
		   instrument: {name: "nircam", filter: "f210m"}}`,
			"target.spectral_type: not found"},
		{`{target: {spectral_type: "G2V", norm_flux_mjy: "lots", norm_wave_micron: 2.0},
		   instrument: {name: "nircam", filter: "f210m"}}`,
			"target.norm_flux_mjy: is not a number"},
		{`{target: {spectral_type: "G2V", norm_flux_mjy: 1.0, norm_wave_micron: 2.0},
		   instrument: {name: "nircam"}}`,
			"instrument.filter: not found"},
	}

	for _, tc := range tests {
		_, err := Load(writeSceneFile(t, tc.contents))
		if err == nil {
			t.Errorf("Load accepted %q", tc.contents)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantMsg) {
			t.Errorf("error = %q, want it to mention %q", err, tc.wantMsg)
		}
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	contents := strings.Replace(validSceneJSON, "norm_flux_mjy: 5.2", "norm_flux_mjy: -1", 1)
	if _, err := Load(writeSceneFile(t, contents)); err == nil {
		t.Error("Load accepted a negative target flux")
	}
}

func TestOffsetMovesEverySource(t *testing.T) {
	s := Scene{
		Target:     Source{OffsetXArcsec: 0.1, OffsetYArcsec: 0.2},
		Companions: []Source{{OffsetXArcsec: 1, OffsetYArcsec: -1}},
	}
	moved := s.Offset(0.5, -0.25)

	if moved.Target.OffsetXArcsec != 0.6 || moved.Target.OffsetYArcsec != -0.05 {
		t.Errorf("target moved to (%g, %g)", moved.Target.OffsetXArcsec, moved.Target.OffsetYArcsec)
	}
	if moved.Companions[0].OffsetXArcsec != 1.5 || moved.Companions[0].OffsetYArcsec != -1.25 {
		t.Errorf("companion moved to (%g, %g)",
			moved.Companions[0].OffsetXArcsec, moved.Companions[0].OffsetYArcsec)
	}
	// the original stays put
	if s.Target.OffsetXArcsec != 0.1 || s.Companions[0].OffsetXArcsec != 1 {
		t.Error("Offset mutated the receiver")
	}
}

func TestRotateQuarterTurn(t *testing.T) {
	s := Scene{Companions: []Source{{OffsetXArcsec: 1, OffsetYArcsec: 0}}}
	rotated := s.Rotate(90)

	c := rotated.Companions[0]
	if math.Abs(c.OffsetXArcsec) > 1e-12 || math.Abs(c.OffsetYArcsec-1) > 1e-12 {
		t.Errorf("(1,0) rotated 90 deg = (%g, %g), want (0, 1)", c.OffsetXArcsec, c.OffsetYArcsec)
	}
	if s.Companions[0].OffsetXArcsec != 1 {
		t.Error("Rotate mutated the receiver")
	}
}

func TestRotatePreservesRadius(t *testing.T) {
	s := Scene{Target: Source{OffsetXArcsec: 0.3, OffsetYArcsec: -0.4}}
	for _, deg := range []float64{17, 123, -45, 360} {
		r := s.Rotate(deg).Target
		got := math.Hypot(r.OffsetXArcsec, r.OffsetYArcsec)
		if math.Abs(got-0.5) > 1e-12 {
			t.Errorf("radius after %g deg = %g, want 0.5", deg, got)
		}
	}
}

func TestValidate(t *testing.T) {
	good := Scene{
		Target:     Source{SpectralType: "G2V", NormFluxMJy: 1, NormWaveMicron: 2},
		Instrument: Instrument{Name: "miri", Filter: "f1065c", NGroups: 1, NInts: 1, NExps: 1},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate rejected a good scene: %v", err)
	}

	bad := good
	bad.Instrument.NGroups = 0
	if err := bad.Validate(); err == nil {
		t.Error("Validate accepted ngroups = 0")
	}

	bad = good
	bad.Companions = []Source{{Name: "b", SpectralType: "L5V", NormFluxMJy: 0, NormWaveMicron: 2}}
	if err := bad.Validate(); err == nil {
		t.Error("Validate accepted a zero-flux companion")
	}
}
