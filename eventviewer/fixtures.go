package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	viewer "github.com/legend-exp/leds_go/pkg"
	"github.com/spf13/cobra"
)

// fixtureSpec describes a synthetic data set.
type fixtureSpec struct {
	Out       string
	Periods   []string
	Runs      int
	Cycles    int
	Events    int
	Strings   int
	Positions int
	Workers   int
	Seed      int64
}

func newFixturesCmd() *cobra.Command {
	spec := fixtureSpec{}
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Generate synthetic tier files and a SQLite metadata database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generateFixtures(cmd.Context(), spec)
		},
	}
	cmd.Flags().StringVar(&spec.Out, "out", "fixtures", "output directory")
	cmd.Flags().StringSliceVar(&spec.Periods, "periods", []string{"p03", "p04"}, "periods to generate")
	cmd.Flags().IntVar(&spec.Runs, "runs", 2, "runs per period")
	cmd.Flags().IntVar(&spec.Cycles, "cycles", 2, "cycles per run")
	cmd.Flags().IntVar(&spec.Events, "events", 100, "events per cycle")
	cmd.Flags().IntVar(&spec.Strings, "strings", 4, "detector strings")
	cmd.Flags().IntVar(&spec.Positions, "positions", 5, "detectors per string")
	cmd.Flags().IntVar(&spec.Workers, "workers", 4, "number of synthesis workers")
	cmd.Flags().Int64Var(&spec.Seed, "seed", 1, "random seed")
	return cmd
}

// fixtureChannels builds the channel map of the synthetic detector: a
// baseline monitor plus strings x positions germanium detectors, one of them
// not usable and one not processable.
func fixtureChannels(spec fixtureSpec, baselineName string) (viewer.Channel, []viewer.Channel) {
	baseline := viewer.Channel{Name: baselineName, DAQID: 1027201, System: "auxs", Usable: true}
	geds := make([]viewer.Channel, 0, spec.Strings*spec.Positions)
	for s := 1; s <= spec.Strings; s++ {
		for p := 1; p <= spec.Positions; p++ {
			geds = append(geds, viewer.Channel{
				Name:        fmt.Sprintf("V%02d%03d", s, p),
				DAQID:       1080000 + s*100 + p,
				System:      viewer.SystemGeds,
				String:      s,
				Position:    p,
				Usable:      !(s == 2 && p == 2),
				Processable: !(s == 3 && p == 1),
			})
		}
	}
	return baseline, geds
}

// fixtureChains returns the two processing chains used by the fixtures. The
// second period moves the odd strings to chain B.
func fixtureChains() (viewer.ChainDefinition, viewer.ChainDefinition) {
	a := viewer.ChainDefinition{ID: "l200-dsp-A", BaselineSamples: 100, PoleZeroTau: 400, TrapRise: 40, TrapFlat: 10, SamplePeriodNs: 16}
	b := viewer.ChainDefinition{ID: "l200-dsp-B", BaselineSamples: 120, PoleZeroTau: 400, TrapRise: 60, TrapFlat: 20, SamplePeriodNs: 16}
	return a, b
}

func fixtureKeys(spec fixtureSpec, config viewer.Configuration) ([]viewer.FileKey, map[string]string) {
	start := time.Date(2023, 3, 11, 0, 0, 0, 0, time.UTC)
	var keys []viewer.FileKey
	periodStart := make(map[string]string, len(spec.Periods))
	for pi, period := range spec.Periods {
		for r := 0; r < spec.Runs; r++ {
			for c := 0; c < spec.Cycles; c++ {
				t := start.AddDate(0, pi, 0).Add(time.Duration(r)*24*time.Hour + time.Duration(c)*time.Hour)
				key := viewer.FileKey{
					Experiment: config.Experiment,
					Period:     period,
					Run:        fmt.Sprintf("r%03d", r),
					DataType:   config.DataType,
					Timestamp:  t.Format("20060102T150405Z"),
					Tier:       viewer.TierHit,
					Ext:        config.Extension,
				}
				if _, ok := periodStart[period]; !ok {
					periodStart[period] = key.Timestamp
				}
				keys = append(keys, key)
			}
		}
	}
	return keys, periodStart
}

func generateFixtures(ctx context.Context, spec fixtureSpec) error {
	if spec.Workers < 1 {
		spec.Workers = 1
	}
	out, err := filepath.Abs(spec.Out)
	if err != nil {
		return err
	}
	config := configuration
	config.TierRaw = filepath.Join(out, "raw")
	config.TierDsp = filepath.Join(out, "dsp")
	config.TierHit = filepath.Join(out, "hit")
	config.MetadataDriver = "sqlite"
	config.MetadataPath = filepath.Join(out, "metadata.db")

	baseline, geds := fixtureChannels(spec, config.BaselineChannel)
	keys, periodStart := fixtureKeys(spec, config)
	chainA, chainB := fixtureChains()

	if err := writeFixtureMetadata(ctx, config, spec, baseline, geds, periodStart, chainA, chainB); err != nil {
		return err
	}

	jobs := make(chan fixtureJob, spec.Workers)
	results := make(chan fixtureCycle, len(keys))
	for w := 1; w <= spec.Workers; w++ {
		go fixtureWorker(w, geds, jobs, results)
	}
	go sendFixtureJobs(jobs, keys, spec.Events, spec.Seed, chainA.PoleZeroTau)

	if err := writeFixtureResults(results, config.TierPaths(), baseline, config.EnergyParameter, len(keys)); err != nil {
		return err
	}

	configFile := filepath.Join(out, "config.json")
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(configFile, data, 0o644); err != nil {
		return err
	}
	message := fmt.Sprintf("Fixtures written to %s, use --config %s", out, configFile)
	logger.Info(message, "fixtures")
	return nil
}

func writeFixtureMetadata(ctx context.Context, config viewer.Configuration, spec fixtureSpec, baseline viewer.Channel, geds []viewer.Channel, periodStart map[string]string, chainA, chainB viewer.ChainDefinition) error {
	if err := os.Remove(config.MetadataPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	db, err := viewer.OpenSQLiteDatabase(config.MetadataPath)
	if err != nil {
		return fmt.Errorf("error creating metadata database: %w", err)
	}
	defer db.Close()

	if err := viewer.MigrateMetadata(ctx, db); err != nil {
		return err
	}
	for _, chain := range []viewer.ChainDefinition{chainA, chainB} {
		if err := viewer.InsertProcessingChain(ctx, db, chain); err != nil {
			return err
		}
	}

	channels := append([]viewer.Channel{baseline}, geds...)
	for pi, period := range spec.Periods {
		validFrom := periodStart[period]
		if err := viewer.InsertChannelMap(ctx, db, validFrom, channels); err != nil {
			return err
		}
		processing := make(viewer.ProcessingConfig, len(geds))
		for _, ch := range geds {
			processing[ch.RawPath()] = chainA.ID
			if pi%2 == 1 && ch.String%2 == 1 {
				processing[ch.RawPath()] = chainB.ID
			}
		}
		if err := viewer.InsertProcessingConfig(ctx, db, validFrom, processing); err != nil {
			return err
		}
	}
	return nil
}
