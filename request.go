package printpal

import (
	"slices"
	"strconv"
)

// Defaults applied to zero-valued GenerationRequest fields.
const (
	DefaultInferenceSteps   = 20
	DefaultGuidanceScale    = 5.0
	DefaultOctreeResolution = 256
)

var octreeResolutions = []int{128, 256, 512}

// GenerationRequest carries the tunable parameters of a generation.
//
// NumInferenceSteps, GuidanceScale and OctreeResolution only apply to the
// default, high and ultra tiers. They are neither validated nor sent for the
// super family.
type GenerationRequest struct {
	Quality           Quality
	Format            Format
	NumInferenceSteps int
	GuidanceScale     float64
	OctreeResolution  int
}

// Validate canonicalizes Quality and Format, fills zero-valued fields with
// defaults and checks the request against the tier compatibility table.
func (r *GenerationRequest) Validate() error {
	if r.Quality == "" {
		r.Quality = QualityDefault
	}
	q, err := ParseQuality(string(r.Quality))
	if err != nil {
		return err
	}
	r.Quality = q

	if r.Format == "" {
		r.Format = FormatSTL
	}
	f, err := ParseFormat(string(r.Format))
	if err != nil {
		return err
	}
	r.Format = f

	if !q.Supports(f) {
		return newValidationError("format %q is not valid for quality %q; valid formats: %v", f, q, q.ValidFormats())
	}

	if q.IsSuper() {
		return nil
	}

	if r.NumInferenceSteps == 0 {
		r.NumInferenceSteps = DefaultInferenceSteps
	}
	if r.GuidanceScale == 0 {
		r.GuidanceScale = DefaultGuidanceScale
	}
	if r.OctreeResolution == 0 {
		r.OctreeResolution = DefaultOctreeResolution
	}
	if r.NumInferenceSteps < 1 || r.NumInferenceSteps > 50 {
		return newValidationError("num_inference_steps must be between 1 and 50")
	}
	if !(r.GuidanceScale >= 0.5 && r.GuidanceScale <= 10.0) {
		return newValidationError("guidance_scale must be between 0.5 and 10.0")
	}
	if !slices.Contains(octreeResolutions, r.OctreeResolution) {
		return newValidationError("octree_resolution must be 128, 256, or 512")
	}
	return nil
}

// formFields returns the outbound parameters. The numeric knobs are omitted
// for the super family. Call Validate first.
func (r GenerationRequest) formFields() [][2]string {
	fields := [][2]string{
		{"quality", string(r.Quality)},
		{"format", string(r.Format)},
	}
	if r.Quality.IsSuper() {
		return fields
	}
	return append(fields,
		[2]string{"num_inference_steps", strconv.Itoa(r.NumInferenceSteps)},
		[2]string{"guidance_scale", strconv.FormatFloat(r.GuidanceScale, 'f', -1, 64)},
		[2]string{"octree_resolution", strconv.Itoa(r.OctreeResolution)},
	)
}
