package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/clipforge/clipd/internal/job"
)

func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Download, analyze and render clips for a video URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}
			j, err := svc.Submit(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s created\n", j.ID)

			pause, _ := cmd.Flags().GetBool("pause")
			if err := svc.Process(cmd.Context(), j.ID, pause); err != nil {
				return err
			}
			j, err = svc.Get(j.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s is %s\n", j.ID, j.Status)
			if pause {
				fmt.Fprintf(cmd.OutOrStdout(),
					"review chapters with `clipd show %s`, then `clipd select` and `clipd render`\n", j.ID)
			}
			return nil
		},
	}
	cmd.Flags().Bool("pause", false, "Stop after analysis for interactive chapter selection")
	return cmd
}

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List all jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "STATUS", "PROGRESS", "METHOD", "CLIPS", "CREATED", "URL"})
			for _, j := range svc.List() {
				t.AppendRow(table.Row{
					j.ID,
					j.Status,
					fmt.Sprintf("%d%%", j.Progress),
					j.DetectionMethod,
					len(j.Clips),
					j.CreatedAt.Local().Format(time.DateTime),
					j.URL,
				})
			}
			t.Render()
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with its chapters and clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}
			j, err := svc.Get(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "job:      %s\n", j.ID)
			fmt.Fprintf(out, "url:      %s\n", j.URL)
			fmt.Fprintf(out, "status:   %s (%d%%)\n", j.Status, j.Progress)
			if j.Error != "" {
				fmt.Fprintf(out, "error:    %s\n", j.Error)
			}
			if j.Duration > 0 {
				fmt.Fprintf(out, "video:    %.0fs %dx%d lang=%s\n", j.Duration, j.Width, j.Height, j.Language)
			}
			if j.DetectionMethod != "" {
				fmt.Fprintf(out, "analysis: %s, %d chapters\n", j.DetectionMethod, len(j.Chapters))
			}

			if len(j.Chapters) > 0 {
				t := table.NewWriter()
				t.SetOutputMirror(out)
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"CHAPTER", "TITLE", "START", "END", "SCORE", "SELECTED"})
				for _, ch := range j.Chapters {
					sel := ""
					if ch.Selected {
						sel = "yes"
					}
					t.AppendRow(table.Row{ch.ID, ch.Title, clock(ch.Start), clock(ch.End), ch.ViralScore, sel})
				}
				t.Render()
			}

			for _, c := range j.Clips {
				fmt.Fprintf(out, "clip: %s (%.0fs, score %d)\n", c.Filename, c.Duration, c.Score)
			}
			return nil
		},
	}
}

func newSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select <job-id> <chapter-id>...",
		Short: "Choose which chapters to render",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}
			if err := svc.Select(args[0], args[1:], selectOptions(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "selected %s on job %s\n", strings.Join(args[1:], ", "), args[0])
			return nil
		},
	}
	cmd.Flags().Bool("burn-subtitles", false, "Override subtitle burn-in for this selection")
	cmd.Flags().Int("width", 0, "Override output width for this selection")
	cmd.Flags().Int("height", 0, "Override output height for this selection")
	cmd.Flags().String("translate", "", "Translate subtitles into this language for this selection")
	return cmd
}

// selectOptions turns the explicitly set select flags into render
// overrides. No flags means no overrides.
func selectOptions(cmd *cobra.Command) *job.RenderOptions {
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	translate, _ := cmd.Flags().GetString("translate")

	opts := &job.RenderOptions{OutWidth: width, OutHeight: height, TranslateTo: translate}
	if cmd.Flags().Changed("burn-subtitles") {
		burn, _ := cmd.Flags().GetBool("burn-subtitles")
		opts.BurnSubtitles = &burn
	}
	if opts.BurnSubtitles == nil && width == 0 && height == 0 && translate == "" {
		return nil
	}
	return opts
}

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <job-id>",
		Short: "Render the selected chapters of a paused job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}
			if err := svc.Resume(cmd.Context(), args[0]); err != nil {
				return err
			}
			j, err := svc.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s is %s with %d clips\n", j.ID, j.Status, len(j.Clips))
			return nil
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process every pending job, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}
			pause, _ := cmd.Flags().GetBool("pause")
			return svc.ProcessPending(cmd.Context(), pause)
		},
	}
	cmd.Flags().Bool("pause", false, "Stop each job after analysis for interactive chapter selection")
	return cmd
}

func newLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <job-id>",
		Short: "Print the progress log of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}
			lines, err := svc.Logs(args[0])
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a job and all of its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}
			if err := svc.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s deleted\n", args[0])
			return nil
		},
	}
}

func clock(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}
