package main

import (
	"errors"
	"fmt"
	"time"

	viewer "github.com/legend-exp/leds_go/pkg"
	"github.com/spf13/cobra"
)

func newLocateCmd() *cobra.Command {
	var sel viewer.Selection
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Resolve a selection to its tier files and row",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openViewer(configuration)
			if err != nil {
				return err
			}
			defer app.Close()

			loc, err := app.session.Locator().Locate(cmd.Context(), sel)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "raw: %s\n", loc.RawFile)
			fmt.Fprintf(out, "dsp: %s\n", loc.DspFile)
			fmt.Fprintf(out, "hit: %s\n", loc.HitFile)
			fmt.Fprintf(out, "row: %d\n", loc.Row)
			return nil
		},
	}
	selectionFlags(cmd, &sel)
	return cmd
}

func newShowCmd() *cobra.Command {
	var (
		sel       viewer.Selection
		waveforms bool
		exploded  bool
		category  string
		line      string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the energies of one event and optionally its waveforms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			plotCategory, err := viewer.ParsePlotCategory(category)
			if err != nil {
				return err
			}
			lineParameter, err := viewer.ParseLineParameter(line)
			if err != nil {
				return err
			}
			app, err := openViewer(configuration)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			snap, err := app.session.Select(ctx, sel)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(snap.Title()))
			fmt.Fprintln(out, renderHeatmap(snap, configuration.EnergyThreshold))
			fmt.Fprintln(out)
			fmt.Fprint(out, renderEnergyTable(snap, configuration.EnergyThreshold))
			if !waveforms {
				return nil
			}

			if err := <-app.session.StartWarm(ctx, sel); err != nil {
				return err
			}
			handles, err := app.session.Browsers(ctx)
			if err != nil {
				return err
			}
			view := waveformView{
				Category:  plotCategory,
				Line:      lineParameter,
				Threshold: configuration.EnergyThreshold,
				Exploded:  exploded,
				Width:     terminalWidth() - 4,
				Height:    defaultPlotHeight,
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderWaveforms(snap, handles, view, newLegendState()))
			return nil
		},
	}
	selectionFlags(cmd, &sel)
	cmd.Flags().BoolVar(&waveforms, "waveforms", false, "plot the waveforms of the event")
	cmd.Flags().BoolVar(&exploded, "exploded", false, "one panel per string or detector")
	cmd.Flags().StringVar(&category, "category", "all", `plot category: all, "above threshold" or String:NN`)
	cmd.Flags().StringVar(&line, "line", string(viewer.LineBaselineSubtracted), "line parameter: wf_blsub, wf_pz, wf_trap or curr")
	return cmd
}

var errEnoughEvents = errors.New("requested number of events played")

func newPlayCmd() *cobra.Command {
	var (
		sel    viewer.Selection
		events int
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Step through events and accumulate the energy spectrum",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openViewer(configuration)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			session := app.session
			snap, err := session.Select(ctx, sel)
			if err != nil {
				return err
			}
			session.Histogram().FillSnapshot(snap)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, snap.Title())

			played := 1
			interval := time.Duration(configuration.PlayIntervalMs) * time.Millisecond
			err = session.Play(ctx, interval, func(snap *viewer.EventSnapshot) error {
				fmt.Fprintln(out, snap.Title())
				played++
				if events > 0 && played >= events {
					return errEnoughEvents
				}
				return nil
			})
			var selErr *viewer.SelectionError
			switch {
			case err == nil, errors.Is(err, errEnoughEvents):
			case errors.As(err, &selErr):
				logger.Info("End of selection reached", "play")
			default:
				return err
			}

			fmt.Fprintf(out, "\n%d events played\n", played)
			fmt.Fprintln(out, renderHistogram(session.Histogram(), terminalWidth()-2, 10))
			return nil
		},
	}
	selectionFlags(cmd, &sel)
	cmd.Flags().IntVar(&events, "events", 0, "stop after this many events (0 plays to the end)")
	return cmd
}

func newChannelsCmd() *cobra.Command {
	var timestamp string
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Print the channel map valid at a timestamp",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := viewer.OpenDatabase(configuration)
			if err != nil {
				return fmt.Errorf("error connecting to metadata database: %w", err)
			}
			defer db.Close()

			meta := viewer.NewDBMetadata(db)
			ctx := cmd.Context()
			chmap, err := meta.ChannelMapAt(ctx, timestamp)
			if err != nil {
				return err
			}
			configs, err := meta.ProcessingConfigAt(ctx, timestamp)
			if err != nil {
				configs = viewer.ProcessingConfig{}
				logger.Error(err.Error())
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-10s %-6s %6s %8s %6s %11s  %s\n",
				"name", "channel", "system", "string", "position", "usable", "processable", "config")
			for _, ch := range chmap.Channels() {
				fmt.Fprintf(out, "%-10s %-10s %-6s %6d %8d %6t %11t  %s\n",
					ch.Name, ch.ID(), ch.System, ch.String, ch.Position, ch.Usable, ch.Processable, configs[ch.RawPath()])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&timestamp, "timestamp", time.Now().UTC().Format("20060102T150405Z"), "validity timestamp")
	return cmd
}
