package main

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/printpal-io/printpal-go"
)

func newAccountCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newHealthCommand(ctx),
		newPricingCommand(ctx),
		newCreditsCommand(ctx),
		newUsageCommand(ctx),
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the PrintPal service is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *printpal.Client) error {
				health, err := client.Health(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, health.Raw)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine("PrintPal API", healthKind(health.Status), valueOrDash(health.Status), shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func healthKind(status string) statusKind {
	switch status {
	case "healthy", "ok":
		return statusOK
	default:
		return statusWarn
	}
}

func newPricingCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Show credit costs per quality tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *printpal.Client) error {
				pricing, err := client.Pricing(cmd.Context())
				if err != nil {
					return err
				}
				tiers := pricingTiers(pricing)
				if jsonOut {
					return writeJSON(cmd, map[string]any{
						"tiers":             tiers,
						"supported_formats": pricing.SupportedFormats,
						"rate_limits":       pricing.RateLimits,
					})
				}

				rows := make([][]string, 0, len(tiers))
				for _, tier := range tiers {
					estimate := "-"
					if tier.EstimatedSeconds > 0 {
						estimate = formatElapsed(time.Duration(tier.EstimatedSeconds * float64(time.Second)))
					}
					rows = append(rows, []string{
						tierTitle(tier.Tier),
						strconv.Itoa(tier.Cost),
						valueOrDash(tier.Resolution),
						estimate,
						valueOrDash(tier.Description),
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Tier", "Credits", "Resolution", "Est. time", "Description"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
					nil,
				))
				if len(pricing.SupportedFormats) > 0 {
					fmt.Fprintf(out, "Formats: %s\n", strings.Join(pricing.SupportedFormats, ", "))
				}
				if limit, ok := pricing.RateLimits["requests_per_minute"]; ok {
					fmt.Fprintf(out, "Rate limit: %d requests/minute\n", limit)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// pricingTiers orders known tiers cheapest first, then any the service added.
func pricingTiers(pricing *printpal.PricingInfo) []pricingTierView {
	known := printpal.Qualities()
	names := make([]string, 0, len(pricing.Credits))
	for name := range pricing.Credits {
		names = append(names, name)
	}
	rank := func(name string) int {
		if i := slices.Index(known, printpal.Quality(name)); i >= 0 {
			return i
		}
		return len(known)
	}
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})

	views := make([]pricingTierView, 0, len(names))
	for _, name := range names {
		tier := pricing.Credits[name]
		views = append(views, pricingTierView{
			Tier:             name,
			Cost:             tier.Cost,
			Resolution:       tier.Resolution,
			EstimatedSeconds: tier.EstimatedTime.Seconds(),
			Description:      tier.Description,
		})
	}
	return views
}

func newCreditsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Show the account credit balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *printpal.Client) error {
				info, err := client.Credits(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{
						"credits":  info.Credits,
						"user_id":  info.UserID,
						"username": info.Username,
					})
				}
				out := cmd.OutOrStdout()
				if info.Username != "" {
					fmt.Fprintln(out, renderField("Account", info.Username))
				}
				fmt.Fprintln(out, renderField("Credits", strconv.Itoa(info.Credits)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newUsageCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show usage statistics for the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *printpal.Client) error {
				usage, err := client.Usage(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{
						"api_key": map[string]any{
							"name":           usage.APIKey.Name,
							"total_requests": usage.APIKey.TotalRequests,
							"credits_used":   usage.APIKey.CreditsUsed,
							"last_used":      usage.APIKey.LastUsed,
						},
						"credits_remaining": usage.CreditsRemaining,
						"recent_requests":   usage.RecentRequests,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderField("API key", valueOrDash(usage.APIKey.Name)))
				fmt.Fprintln(out, renderField("Total requests", strconv.Itoa(usage.APIKey.TotalRequests)))
				fmt.Fprintln(out, renderField("Credits used", strconv.Itoa(usage.APIKey.CreditsUsed)))
				fmt.Fprintln(out, renderField("Credits remaining", strconv.Itoa(usage.CreditsRemaining)))
				fmt.Fprintln(out, renderField("Last used", formatTime(usage.APIKey.LastUsed)))
				fmt.Fprintln(out, renderField("Recent requests", strconv.Itoa(len(usage.RecentRequests))))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
