package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/evset/config"
	"github.com/sarchlab/evset/datarecording"
	"github.com/sarchlab/evset/driver"
	"github.com/sarchlab/evset/dump"
	"github.com/sarchlab/evset/monitoring"
	"github.com/sarchlab/evset/oracle"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Oracle kinds accepted by --oracle.
const (
	oracleSim    = "sim"
	oracleTiming = "timing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build a minimal eviction set.",
	Long: "`run` allocates a target cache line, finds a candidate pool that " +
		"evicts it, reduces the pool to a minimal eviction set, verifies " +
		"the set and writes it into a dump file.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEvset(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.Int("tries", config.DefaultOuterAttempts,
		"Number of pools to try, doubling the size each time")
	f.Int64("seed", config.DefaultSeed, "Seed of the candidate shuffle")
	f.Int("candidates", config.DefaultInitialCandidates,
		"Size of the first candidate pool")
	f.Int("retries", config.DefaultMaxAttempts,
		"Retries of a reduction pass that removes nothing")
	f.Duration("backoff", config.DefaultBackoff,
		"Delay before retrying a reduction pass")
	f.Uint64("associativity", config.DefaultAssociativity,
		"Ways per set of the tested cache level")
	f.Uint64("line-size", config.DefaultLineSize, "Cache line size in bytes")
	f.Uint64("page-size", config.DefaultPageSize, "Page size in bytes")
	f.Uint64("cache-size", config.DefaultCacheSize,
		"Capacity of the tested cache level in bytes")
	f.String("cache-config", "",
		"TOML file with the run parameters, overridden by explicit flags")
	f.String("oracle", oracleSim, "Eviction oracle, sim or timing")
	f.Uint64("threshold", 0,
		"Reload latency in cycles from which the timing oracle reports a miss")
	f.Int("repeats", 5, "Measurements voting on each timing oracle answer")
	f.Int("tested-level", config.DefaultTestedLevel,
		"Cache level tested by the simulated oracle, counting from 1")
	f.String("output", "evset_dump.txt", "File the minimal set is written to")
	f.Bool("record", false, "Record probes and steps into a SQLite database")
	f.String("record-file", "",
		"Name of the recording database, without the .sqlite3 extension")
	f.Bool("monitor", false, "Serve the progress over HTTP")
	f.Int("monitor-port", 0, "Port of the monitor, random if not set")
	f.Bool("open-browser", false, "Open the monitor in a web browser")
	f.String("log-file", "", "Also write the log into a rotated file")
	f.Bool("verbose", false, "Log every oracle probe")
}

func runEvset(cmd *cobra.Command) error {
	f := cmd.Flags()

	run, err := loadRun(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(mustGetString(f, "log-file"))
	runID := xid.New().String()

	o, calibration, err := buildOracle(cmd, run)
	if err != nil {
		return err
	}

	counting := oracle.NewCounting(o)

	d := driver.MakeBuilder().
		WithRun(run).
		WithOracle(counting).
		WithCalibration(calibration).
		Build()

	logHook := driver.NewLogHook(logger)
	logHook.Verbose = mustGetBool(f, "verbose")
	d.AcceptHook(logHook)

	var info *datarecording.RunInfoRecorder

	if mustGetBool(f, "record") {
		recorder, err := datarecording.New(mustGetString(f, "record-file"))
		if err != nil {
			return err
		}
		defer recorder.Close()

		info = datarecording.NewRunInfoRecorder(recorder, runID)
		info.Start(map[string]string{
			"seed":   fmt.Sprint(run.Seed),
			"oracle": mustGetString(f, "oracle"),
		})

		d.AcceptHook(datarecording.NewReductionRecorder(recorder, runID))
	}

	var monitor *monitoring.Monitor

	if mustGetBool(f, "monitor") {
		monitor, err = startMonitor(cmd, run, runID)
		if err != nil {
			return err
		}
		defer monitor.StopServer()

		d.AcceptHook(monitor)
	}

	region, err := d.AllocateTarget()
	if err != nil {
		return err
	}
	defer region.Release()

	start := time.Now()
	report, err := d.Run(region.Base())
	elapsed := time.Since(start)

	outcome := outcomeOf(report, err)
	if info != nil {
		info.End(outcome)
	}

	if monitor != nil {
		monitor.SetPhase(monitoring.PhaseDone)
	}

	if err != nil {
		if errors.Is(err, driver.ErrNoInitialEvictionSet) {
			logger.Printf("Error: %v", err)
		}

		return err
	}
	defer report.Release()

	dmp := report.Dump(run.Seed, run.Cache)
	dmp.Extra = map[string]string{"oracle": mustGetString(f, "oracle")}

	output := mustGetString(f, "output")
	if err := dump.WriteFile(output, dmp); err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), report, counting.Probes, elapsed, output)

	return nil
}

// loadRun merges the configuration file, the flags and the defaults.
func loadRun(cmd *cobra.Command) (config.Run, error) {
	f := cmd.Flags()
	run := config.DefaultRun()

	if path := mustGetString(f, "cache-config"); path != "" {
		var err error

		run, err = config.LoadFile(path)
		if err != nil {
			return config.Run{}, err
		}
	}

	if f.Changed("tries") {
		run.Pool.OuterAttempts = mustGetInt(f, "tries")
	}

	if f.Changed("candidates") {
		run.Pool.InitialCandidates = mustGetInt(f, "candidates")
	}

	if f.Changed("seed") {
		run.Seed, _ = f.GetInt64("seed")
	}

	if f.Changed("retries") {
		run.Retry.MaxAttempts = mustGetInt(f, "retries")
	}

	if f.Changed("backoff") {
		run.Retry.Backoff, _ = f.GetDuration("backoff")
	}

	if f.Changed("associativity") {
		run.Cache.Associativity, _ = f.GetUint64("associativity")
	}

	if f.Changed("line-size") {
		run.Cache.LineSize, _ = f.GetUint64("line-size")
	}

	if f.Changed("page-size") {
		run.Cache.PageSize, _ = f.GetUint64("page-size")
	}

	if f.Changed("cache-size") {
		run.Cache.Size, _ = f.GetUint64("cache-size")
	}

	if f.Changed("tested-level") {
		run.TestedLevel = mustGetInt(f, "tested-level")
	}

	if err := run.Validate(); err != nil {
		return config.Run{}, err
	}

	// The simulated tested level takes the geometry the reduction aims at.
	tested := &run.Levels[run.TestedLevel-1]
	tested.Size = run.Cache.Size
	tested.Associativity = run.Cache.Associativity
	tested.LineSize = run.Cache.LineSize

	return run, nil
}

func buildOracle(cmd *cobra.Command, run config.Run) (oracle.Oracle, any, error) {
	f := cmd.Flags()

	switch kind := mustGetString(f, "oracle"); kind {
	case oracleSim:
		o, err := oracle.NewSimulatedOracle(run.Levels, run.TestedLevel)
		return o, nil, err
	case oracleTiming:
		threshold, _ := f.GetUint64("threshold")
		if threshold == 0 {
			return nil, nil, fmt.Errorf("%w: the timing oracle needs --threshold",
				oracle.ErrNoCalibration)
		}

		o, err := oracle.NewTimingOracle(mustGetInt(f, "repeats"))
		if err != nil {
			return nil, nil, err
		}

		return o, &oracle.Calibration{MissThreshold: threshold}, nil
	default:
		return nil, nil, fmt.Errorf("unknown oracle %q, expected %s or %s",
			kind, oracleSim, oracleTiming)
	}
}

func startMonitor(
	cmd *cobra.Command,
	run config.Run,
	runID string,
) (*monitoring.Monitor, error) {
	f := cmd.Flags()

	monitor := monitoring.MakeBuilder().
		WithPortNumber(mustGetInt(f, "monitor-port")).
		WithRunID(runID).
		WithAssociativity(int(run.Cache.Associativity)).
		Build()

	url, err := monitor.StartServer()
	if err != nil {
		return nil, err
	}

	if mustGetBool(f, "open-browser") {
		if err := browser.OpenURL(url); err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}

	return monitor, nil
}

func newLogger(logFile string) *log.Logger {
	var w io.Writer = os.Stderr

	if logFile != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		})
	}

	return log.New(w, "", log.LstdFlags)
}

func outcomeOf(report *driver.Report, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case report.Minimal():
		return "minimal"
	default:
		return "not minimal"
	}
}

func printSummary(
	w io.Writer,
	report *driver.Report,
	probes int,
	elapsed time.Duration,
	output string,
) {
	res := report.Result
	state := "Minimal"

	if !report.Minimal() {
		state = "Non-minimal"
	}

	fmt.Fprintf(w, "%s eviction set of %d elements for target 0x%x:\n",
		state, res.Set.Len(), report.Target)

	for _, a := range res.Set.Addresses() {
		fmt.Fprintf(w, "  0x%x\n", a)
	}

	fmt.Fprintf(w, "%d candidates, %d reductions, %d retries, %d probes in %s\n",
		report.Pool.Len(), res.Reductions, res.Retries, probes,
		elapsed.Round(time.Microsecond))
	fmt.Fprintf(w, "Written to %s\n", output)
}
