package printpal

import (
	"errors"
	"math"
	"testing"
)

func TestValidateAppliesDefaults(t *testing.T) {
	req := GenerationRequest{}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if req.Quality != QualityDefault || req.Format != FormatSTL {
		t.Fatalf("unexpected canonical tier/format: %+v", req)
	}
	if req.NumInferenceSteps != 20 || req.GuidanceScale != 5.0 || req.OctreeResolution != 256 {
		t.Fatalf("unexpected defaults: %+v", req)
	}
}

func TestValidateCanonicalizesStrings(t *testing.T) {
	req := GenerationRequest{Quality: " ULTRA ", Format: "GLB"}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if req.Quality != QualityUltra || req.Format != FormatGLB {
		t.Fatalf("expected canonical values, got %+v", req)
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	for _, req := range []GenerationRequest{
		{Quality: "medium"},
		{Format: "step"},
	} {
		req := req
		err := req.Validate()
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
}

func TestValidateFormatCompatibility(t *testing.T) {
	for _, q := range Qualities() {
		for _, f := range Formats() {
			req := GenerationRequest{Quality: q, Format: f}
			err := req.Validate()
			if q.Supports(f) && err != nil {
				t.Fatalf("%s/%s: expected valid, got %v", q, f, err)
			}
			if !q.Supports(f) && !errors.Is(err, ErrValidation) {
				t.Fatalf("%s/%s: expected validation error, got %v", q, f, err)
			}
		}
	}
}

func TestValidateNumericRangesForStandardTiers(t *testing.T) {
	cases := []struct {
		name     string
		steps    int
		guidance float64
		octree   int
		valid    bool
	}{
		{"lower bounds", 1, 0.5, 128, true},
		{"upper bounds", 50, 10.0, 512, true},
		{"steps too high", 51, 5, 256, false},
		{"steps negative", -1, 5, 256, false},
		{"guidance too low", 20, 0.4, 256, false},
		{"guidance too high", 20, 10.01, 256, false},
		{"guidance NaN", 20, math.NaN(), 256, false},
		{"guidance +Inf", 20, math.Inf(1), 256, false},
		{"guidance -Inf", 20, math.Inf(-1), 256, false},
		{"octree not allowed", 20, 5, 384, false},
		{"octree negative", 20, 5, -256, false},
	}
	for _, q := range []Quality{QualityDefault, QualityHigh, QualityUltra} {
		for _, tc := range cases {
			req := GenerationRequest{
				Quality:           q,
				Format:            FormatOBJ,
				NumInferenceSteps: tc.steps,
				GuidanceScale:     tc.guidance,
				OctreeResolution:  tc.octree,
			}
			err := req.Validate()
			if tc.valid && err != nil {
				t.Fatalf("%s/%s: expected valid, got %v", q, tc.name, err)
			}
			if !tc.valid {
				kind, ok := KindOf(err)
				if !ok || kind != KindValidation {
					t.Fatalf("%s/%s: expected validation error, got %v", q, tc.name, err)
				}
			}
		}
	}
}

func TestValidateIgnoresKnobsForSuperFamily(t *testing.T) {
	for _, q := range Qualities() {
		if !q.IsSuper() {
			continue
		}
		req := GenerationRequest{
			Quality:           q,
			Format:            FormatGLB,
			NumInferenceSteps: 999,
			GuidanceScale:     -3,
			OctreeResolution:  7,
		}
		if err := req.Validate(); err != nil {
			t.Fatalf("%s: expected knobs to be ignored, got %v", q, err)
		}
		for _, field := range req.formFields() {
			switch field[0] {
			case "num_inference_steps", "guidance_scale", "octree_resolution":
				t.Fatalf("%s: knob %s must not be transmitted", q, field[0])
			}
		}
	}
}

func TestFormFieldsForStandardTier(t *testing.T) {
	req := GenerationRequest{Quality: QualityHigh, Format: FormatPLY, GuidanceScale: 7.5}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	got := map[string]string{}
	for _, field := range req.formFields() {
		got[field[0]] = field[1]
	}
	want := map[string]string{
		"quality":             "high",
		"format":              "ply",
		"num_inference_steps": "20",
		"guidance_scale":      "7.5",
		"octree_resolution":   "256",
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("field %s: got %q want %q", key, got[key], value)
		}
	}
}
