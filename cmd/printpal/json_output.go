package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/printpal-io/printpal-go"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type statusView struct {
	GenerationUID string     `json:"generation_uid"`
	Status        string     `json:"status"`
	Quality       string     `json:"quality,omitempty"`
	Format        string     `json:"format,omitempty"`
	Resolution    string     `json:"resolution,omitempty"`
	ExternalState string     `json:"external_state,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func newStatusView(s *printpal.GenerationStatus) statusView {
	return statusView{
		GenerationUID: s.GenerationUID,
		Status:        s.Status,
		Quality:       s.Quality,
		Format:        s.Format,
		Resolution:    s.Resolution,
		ExternalState: s.ExternalState,
		CreatedAt:     s.CreatedAt,
		CompletedAt:   s.CompletedAt,
	}
}

type submissionView struct {
	GenerationUID    string  `json:"generation_uid"`
	Status           string  `json:"status"`
	Quality          string  `json:"quality"`
	Format           string  `json:"format"`
	CreditsUsed      int     `json:"credits_used"`
	CreditsRemaining int     `json:"credits_remaining"`
	EstimatedSeconds float64 `json:"estimated_time_seconds,omitempty"`
	OutputPath       string  `json:"output_path,omitempty"`
}

func newSubmissionView(r *printpal.GenerationResult, req printpal.GenerationRequest) submissionView {
	quality := r.Quality
	if quality == "" {
		quality = string(req.Quality)
	}
	return submissionView{
		GenerationUID:    r.GenerationUID,
		Status:           r.Status,
		Quality:          quality,
		Format:           string(req.Format),
		CreditsUsed:      r.CreditsUsed,
		CreditsRemaining: r.CreditsRemaining,
		EstimatedSeconds: r.EstimatedTime.Seconds(),
	}
}

type pricingTierView struct {
	Tier             string  `json:"tier"`
	Cost             int     `json:"cost"`
	Resolution       string  `json:"resolution,omitempty"`
	EstimatedSeconds float64 `json:"estimated_time_seconds,omitempty"`
	Description      string  `json:"description,omitempty"`
}

type batchResultView struct {
	Image         string  `json:"image"`
	GenerationUID string  `json:"generation_uid,omitempty"`
	OutputPath    string  `json:"output_path,omitempty"`
	CreditsUsed   int     `json:"credits_used"`
	Seconds       float64 `json:"seconds"`
	Error         string  `json:"error,omitempty"`
}

type batchSummaryView struct {
	RunID       string            `json:"run_id"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	CreditsUsed int               `json:"credits_used"`
	Seconds     float64           `json:"seconds"`
	Results     []batchResultView `json:"results"`
}

type checkView struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}
