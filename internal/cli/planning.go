package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/models"
	"trade-journal/internal/planning"
	"trade-journal/internal/store"
)

type planView struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id,omitempty"`
	Ticker     string    `json:"ticker"`
	Direction  string    `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	Target     float64   `json:"target"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newPlanView(p models.TradePlan) planView {
	return planView{
		ID:         p.ID,
		CampaignID: p.CampaignID,
		Ticker:     p.Ticker,
		Direction:  string(p.Direction),
		EntryPrice: p.EntryPrice,
		StopLoss:   p.StopLoss,
		Target:     p.Target,
		Status:     string(p.Status),
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

type campaignView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Thesis    string    `json:"thesis,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newCampaignView(c models.Campaign) campaignView {
	return campaignView{c.ID, c.Name, c.Thesis, string(c.Status), c.CreatedAt, c.UpdatedAt}
}

// addPlanningCommands adds trade plan and campaign commands.
func addPlanningCommands(rootCmd *cobra.Command, app *App) {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage trade plans",
		Long: `Trade plans record an idea before it is traded. Plans move through
idea -> watching -> active -> closed; trades can be linked to a plan.`,
	}
	planCmd.AddCommand(newPlanAddCmd(app))
	planCmd.AddCommand(newPlanListCmd(app))
	planCmd.AddCommand(newPlanStatusCmd(app))

	campaignCmd := &cobra.Command{
		Use:   "campaign",
		Short: "Manage campaigns of related plans",
	}
	campaignCmd.AddCommand(newCampaignAddCmd(app))
	campaignCmd.AddCommand(newCampaignListCmd(app))
	campaignCmd.AddCommand(newCampaignStatusCmd(app))

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(campaignCmd)
}

func newPlanAddCmd(app *App) *cobra.Command {
	var (
		campaign, direction, notes string
		entry, stop, target        float64
	)

	cmd := &cobra.Command{
		Use:     "add <ticker>",
		Short:   "Create a trade plan",
		Example: `  journal plan add NVDA --entry 880 --stop 840 --target 980 --notes "breakout retest"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			plan, err := app.Planning.CreatePlan(ctx, app.Owner(), planning.PlanInput{
				CampaignID: campaign,
				Ticker:     args[0],
				Direction:  models.Direction(strings.ToLower(direction)),
				EntryPrice: entry,
				StopLoss:   stop,
				Target:     target,
				Notes:      notes,
			})
			if err != nil {
				return fmt.Errorf("failed to create plan: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(newPlanView(*plan))
			}
			output.Success("Created plan %s for %s (%s)", ShortID(plan.ID), plan.Ticker, plan.Direction)
			return nil
		},
	}

	cmd.Flags().StringVar(&campaign, "campaign", "", "Campaign id")
	cmd.Flags().StringVar(&direction, "direction", "long", "Direction: long or short")
	cmd.Flags().Float64Var(&entry, "entry", 0, "Planned entry price")
	cmd.Flags().Float64Var(&stop, "stop", 0, "Stop loss")
	cmd.Flags().Float64Var(&target, "target", 0, "Target price")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes")

	return cmd
}

func newPlanListCmd(app *App) *cobra.Command {
	var ticker, status, campaign string
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List trade plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			filter := store.PlanFilter{
				Ticker:     strings.ToUpper(strings.TrimSpace(ticker)),
				Status:     models.PlanStatus(strings.ToLower(status)),
				CampaignID: campaign,
				Limit:      limit,
			}
			if status != "" && !planning.ValidPlanStatus(filter.Status) {
				return fmt.Errorf("unknown plan status %q", status)
			}

			plans, err := app.Planning.ListPlans(ctx, app.Owner(), filter)
			if err != nil {
				return fmt.Errorf("failed to list plans: %w", err)
			}

			if output.IsJSON() {
				views := make([]planView, 0, len(plans))
				for _, p := range plans {
					views = append(views, newPlanView(p))
				}
				return output.JSON(views)
			}

			if len(plans) == 0 {
				output.Info("No plans found")
				return nil
			}

			table := NewTable(output, "ID", "Ticker", "Dir", "Entry", "Stop", "Target", "Status", "Notes")
			for _, p := range plans {
				table.AddRow(
					p.ID,
					p.Ticker,
					string(p.Direction),
					FormatPrice(p.EntryPrice),
					FormatPrice(p.StopLoss),
					FormatPrice(p.Target),
					planStatusText(output, p.Status),
					TruncateString(p.Notes, 30),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "Only this ticker")
	cmd.Flags().StringVar(&status, "status", "", "Only this status (idea, watching, active, closed)")
	cmd.Flags().StringVar(&campaign, "campaign", "", "Only plans in this campaign")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of plans")

	return cmd
}

func planStatusText(output *Output, s models.PlanStatus) string {
	switch s {
	case models.PlanActive:
		return output.Green(string(s))
	case models.PlanWatching:
		return output.Yellow(string(s))
	case models.PlanClosed:
		return output.DimText(string(s))
	default:
		return string(s)
	}
}

func newPlanStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "status <id> <idea|watching|active|closed>",
		Short:   "Move a plan to a new status",
		Example: `  journal plan status 3f2a9c1e-... active`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			to := models.PlanStatus(strings.ToLower(args[1]))
			if !planning.ValidPlanStatus(to) {
				return fmt.Errorf("unknown plan status %q", args[1])
			}

			plan, err := app.Planning.TransitionPlan(ctx, app.Owner(), args[0], to)
			if err != nil {
				return fmt.Errorf("failed to change plan status: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(newPlanView(*plan))
			}
			output.Success("Plan %s is now %s", ShortID(plan.ID), plan.Status)
			return nil
		},
	}
}

func newCampaignAddCmd(app *App) *cobra.Command {
	var thesis string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			c, err := app.Planning.CreateCampaign(ctx, app.Owner(), args[0], thesis)
			if err != nil {
				return fmt.Errorf("failed to create campaign: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(newCampaignView(*c))
			}
			output.Success("Created campaign %s (%s)", c.Name, ShortID(c.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&thesis, "thesis", "", "Campaign thesis")
	return cmd
}

func newCampaignListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List campaigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			campaigns, err := app.Planning.ListCampaigns(ctx, app.Owner())
			if err != nil {
				return fmt.Errorf("failed to list campaigns: %w", err)
			}

			if output.IsJSON() {
				views := make([]campaignView, 0, len(campaigns))
				for _, c := range campaigns {
					views = append(views, newCampaignView(c))
				}
				return output.JSON(views)
			}

			if len(campaigns) == 0 {
				output.Info("No campaigns found")
				return nil
			}

			table := NewTable(output, "ID", "Name", "Status", "Thesis")
			for _, c := range campaigns {
				table.AddRow(c.ID, c.Name, string(c.Status), TruncateString(c.Thesis, 40))
			}
			table.Render()
			return nil
		},
	}
}

func newCampaignStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <planning|active|closed>",
		Short: "Move a campaign to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			to := models.CampaignStatus(strings.ToLower(args[1]))
			if !planning.ValidCampaignStatus(to) {
				return fmt.Errorf("unknown campaign status %q", args[1])
			}

			c, err := app.Planning.TransitionCampaign(ctx, app.Owner(), args[0], to)
			if err != nil {
				return fmt.Errorf("failed to change campaign status: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(newCampaignView(*c))
			}
			output.Success("Campaign %s is now %s", c.Name, c.Status)
			return nil
		},
	}
}
