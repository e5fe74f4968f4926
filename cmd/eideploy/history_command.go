package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"eideploy/internal/history"
	"eideploy/internal/services"
)

type historyRow struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	DeployType string `json:"deploy_type"`
	JobID      string `json:"job_id,omitempty"`
	Status     string `json:"status"`
	Filename   string `json:"filename,omitempty"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
	SHA256     string `json:"sha256,omitempty"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent deployment runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "history", "open", cfg.HistoryPath(), err)
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return services.Wrap(services.ErrUnknown, "history", "list", "", err)
			}

			if jsonOutput {
				rows := make([]historyRow, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, toHistoryRow(run))
				}
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			headers := []string{"Started", "Project", "Type", "Job", "Status", "Artifact", "Size", "Duration"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.StartedAt.Local().Format("2006-01-02 15:04"),
					run.ProjectID,
					run.DeployType,
					valueOrDash(run.JobID),
					string(run.Status),
					valueOrDash(run.Filename),
					sizeOrDash(run.SizeBytes),
					durationOrDash(run.Duration()),
				})
			}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}

func toHistoryRow(run *history.Run) historyRow {
	row := historyRow{
		ID:         run.ID,
		ProjectID:  run.ProjectID,
		DeployType: run.DeployType,
		JobID:      run.JobID,
		Status:     string(run.Status),
		Filename:   run.Filename,
		SizeBytes:  run.SizeBytes,
		SHA256:     run.SHA256,
		Error:      run.ErrorMessage,
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339),
	}
	if !run.FinishedAt.IsZero() {
		row.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return row
}

func sizeOrDash(size int64) string {
	if size <= 0 {
		return "-"
	}
	return formatBytes(size)
}

func durationOrDash(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Minute {
		return strconv.Itoa(int(d.Round(time.Second).Seconds())) + "s"
	}
	return d.Round(time.Second).String()
}
