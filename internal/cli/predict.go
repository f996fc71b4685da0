package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/config"
	"github.com/pablasso/flightpath/internal/demo"
	"github.com/pablasso/flightpath/internal/display"
	"github.com/pablasso/flightpath/internal/engine"
	"github.com/pablasso/flightpath/internal/export"
	"github.com/pablasso/flightpath/internal/form"
	"github.com/pablasso/flightpath/internal/logging"
	"github.com/pablasso/flightpath/internal/metrics"
)

const formatTable = "table"

var errNoPaths = errors.New("no prediction finished")

type predictFlags struct {
	lat      float64
	lon      float64
	alt      string
	altUnit  string
	rateUnit string
	ascent   float64
	burst    float64
	descent  float64
	floatAlt float64
	stop     string
	launch   string
	hourly   int
	profile  string
	format   string
	output   string

	demo         bool
	demoPreset   string
	demoScenario string
}

func newPredictCmd(e *env) *cobra.Command {
	f := &predictFlags{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict flight paths for one launch or an hourly sweep",
		Long: `Predict sends one request per launch time and retries failed ones.
Progress goes to stderr; results go to stdout or --output.

Formats:
  table  Launch, landing, burst, flight time and drift (default)
  json   Full trajectories
  yaml   Full trajectories
  csv    One row per trajectory sample
  kml    Paths and landing points for map tools`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd.Context(), e, f)
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&f.lat, "lat", 0, "Launch latitude in degrees")
	flags.Float64Var(&f.lon, "lon", 0, "Launch longitude in degrees")
	flags.StringVar(&f.alt, "alt", "", "Launch altitude (default ground level)")
	flags.StringVar(&f.altUnit, "alt-unit", string(form.Meters), "Unit for altitudes: m|ft")
	flags.StringVar(&f.rateUnit, "rate-unit", string(form.MetersPerSecond), "Unit for ascent and descent rates: m/s|ft/s")
	flags.Float64Var(&f.ascent, "ascent", 5, "Ascent rate")
	flags.Float64Var(&f.burst, "burst", 30000, "Burst altitude (standard profile)")
	flags.Float64Var(&f.descent, "descent", 5, "Sea level descent rate (standard profile)")
	flags.Float64Var(&f.floatAlt, "float-alt", 15000, "Float altitude (float profile)")
	flags.StringVar(&f.stop, "stop", "", "Float stop time, RFC3339 (float profile, default launch + 24h)")
	flags.StringVar(&f.launch, "launch", "", "Launch time, RFC3339 (default next five minute mark)")
	flags.IntVar(&f.hourly, "hourly", 1, "Number of hourly launches to predict")
	flags.StringVar(&f.profile, "profile", "", "Flight profile: "+api.ProfileStandard+"|"+api.ProfileFloat)
	flags.StringVar(&f.format, "format", formatTable, "Output format: table|json|yaml|csv|kml")
	flags.StringVarP(&f.output, "output", "o", "", "Write results to this file instead of stdout")
	flags.BoolVar(&f.demo, "demo", false, "Use the offline simulator instead of the API")
	flags.StringVar(&f.demoPreset, "demo-preset", string(demo.PresetQuick), "Demo preset: quick|medium|slow")
	flags.StringVar(&f.demoScenario, "demo-scenario", string(demo.ScenarioSuccess), "Demo scenario: success|flaky|fail")
	flags.Int("max-reruns", 0, "Reruns allowed per launch after the first attempt")
	flags.Bool("retry-uniform", false, "Retry every failure, including rejected requests (the legacy web client's behaviour; by default 4xx errors fail at once)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")

	if err := e.v.BindPFlag("retry.max_reruns", flags.Lookup("max-reruns")); err != nil {
		panic(err)
	}
	if err := e.v.BindPFlag("retry.uniform", flags.Lookup("retry-uniform")); err != nil {
		panic(err)
	}
	return cmd
}

func runPredict(ctx context.Context, e *env, f *predictFlags) error {
	cfg := e.cfg

	format := formatTable
	if f.format != formatTable {
		parsed, err := export.ParseFormat(f.format)
		if err != nil {
			return err
		}
		format = string(parsed)
	}

	req, err := f.request(cfg, e.clock())
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Dir)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logger.Close()

	predictor, err := f.predictor(e, cfg, logger.Logger)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	status := display.New(e.stderr)
	orch, err := engine.New(engine.Options{
		Predictor: predictor,
		Events:    display.NewSweepEvents(status),
		Metrics:   collector,
		Logger:    logger.Logger,
		Retry: engine.RetryPolicy{
			MaxReruns: cfg.Retry.MaxReruns,
			Backoff:   cfg.Retry.Backoff,
			Uniform:   cfg.Retry.Uniform,
		},
	})
	if err != nil {
		return err
	}
	defer orch.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	status.Start()
	b, err := orch.Predict(req)
	if err != nil {
		status.Stop()
		return err
	}

	err = runSweep(ctx, orch, collector, cfg.Metrics.Addr, logger.Logger)
	status.Stop()
	if err != nil {
		return fmt.Errorf("sweep interrupted: %w", err)
	}

	if err := writeResults(e, b, format, f.output); err != nil {
		return err
	}

	finished := len(b.Paths())
	fmt.Fprintf(e.stderr, "%d of %d launches predicted\n", finished, len(b.Tasks()))
	if finished == 0 {
		return errNoPaths
	}
	return nil
}

// runSweep delivers completions until the batch is done, serving metrics
// alongside when addr is set.
func runSweep(ctx context.Context, orch *engine.Orchestrator, collector *metrics.Collector, addr string, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()

	if addr != "" {
		g.Go(func() error {
			return metrics.Serve(serveCtx, addr, collector.Handler(), logger)
		})
	}
	g.Go(func() error {
		defer stopServing()
		return orch.Run(gctx)
	})
	return g.Wait()
}

// request turns the flags into a validated sweep.
func (f *predictFlags) request(cfg config.Config, now time.Time) (engine.SweepRequest, error) {
	lengthUnit, err := form.ParseUnit(f.altUnit)
	if err != nil {
		return engine.SweepRequest{}, fmt.Errorf("--alt-unit: %w", err)
	}
	if lengthUnit != form.Meters && lengthUnit != form.Feet {
		return engine.SweepRequest{}, fmt.Errorf("--alt-unit must be m or ft, got %q", f.altUnit)
	}
	rateUnit, err := form.ParseUnit(f.rateUnit)
	if err != nil {
		return engine.SweepRequest{}, fmt.Errorf("--rate-unit: %w", err)
	}
	if rateUnit != form.MetersPerSecond && rateUnit != form.FeetPerSecond {
		return engine.SweepRequest{}, fmt.Errorf("--rate-unit must be m/s or ft/s, got %q", f.rateUnit)
	}

	window := form.NewWindow(now, cfg.Predict.MinHours, cfg.Predict.MaxHours)

	launch := window.DefaultLaunch()
	if f.launch != "" {
		launch, err = time.Parse(time.RFC3339, f.launch)
		if err != nil {
			return engine.SweepRequest{}, fmt.Errorf("--launch must be RFC3339: %w", err)
		}
	}

	profile := f.profile
	if profile == "" {
		profile = cfg.Predict.Profile
	}

	v := form.Values{
		Profile:       profile,
		Latitude:      f.lat,
		Longitude:     f.lon,
		AltitudeUnit:  lengthUnit,
		AscentRate:    f.ascent,
		AscentUnit:    rateUnit,
		BurstAltitude: f.burst,
		BurstUnit:     lengthUnit,
		DescentRate:   f.descent,
		DescentUnit:   rateUnit,
		FloatAltitude: f.floatAlt,
		FloatUnit:     lengthUnit,
		StopTime:      launch.Add(24 * time.Hour),
		Launch:        launch,
		Hourly:        f.hourly,
	}
	if f.alt != "" {
		alt, err := strconv.ParseFloat(f.alt, 64)
		if err != nil {
			return engine.SweepRequest{}, fmt.Errorf("--alt must be a number: %w", err)
		}
		v.Altitude = &alt
	}
	if f.stop != "" {
		v.StopTime, err = time.Parse(time.RFC3339, f.stop)
		if err != nil {
			return engine.SweepRequest{}, fmt.Errorf("--stop must be RFC3339: %w", err)
		}
	}

	return form.Validate(v, window)
}

func (f *predictFlags) predictor(e *env, cfg config.Config, logger *slog.Logger) (engine.Predictor, error) {
	if e.predictor != nil {
		return e.predictor, nil
	}
	if f.demo {
		preset, err := demo.ParsePreset(f.demoPreset)
		if err != nil {
			return nil, err
		}
		scenario, err := demo.ParseScenario(f.demoScenario)
		if err != nil {
			return nil, err
		}
		demoCfg, err := demo.NewConfig(preset, scenario)
		if err != nil {
			return nil, err
		}
		return demo.NewPredictor(demoCfg), nil
	}

	client, err := api.NewClient(api.ClientOptions{
		BaseURL:     cfg.API.URL,
		Timeout:     cfg.API.Timeout,
		UserAgent:   cfg.API.UserAgent,
		MaxInFlight: int64(cfg.API.MaxInFlight),
		Cache:       api.NewCache(cfg.API.CacheSize, cfg.API.CacheTTL),
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func writeResults(e *env, b *engine.Batch, format, output string) (err error) {
	w := e.stdout
	if output != "" {
		file, cerr := os.Create(output)
		if cerr != nil {
			return fmt.Errorf("create output: %w", cerr)
		}
		defer func() {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}()
		w = file
	}

	if format == formatTable {
		return writeTable(w, b)
	}
	return export.Write(w, export.Format(format), export.FromBatch(b, e.clock()))
}

// writeTable prints one row per requested launch, failures included.
func writeTable(w io.Writer, b *engine.Batch) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("LAUNCH (UTC)", "LANDING", "BURST", "FLIGHT", "DRIFT")

	for _, task := range b.Tasks() {
		launch := task.LaunchTime.UTC().Format("2006-01-02 15:04")
		p, ok := b.Path(task.LaunchTime)
		if !ok {
			t.Row(launch, "failed: "+api.Describe(task.Err), "", "", "")
			continue
		}
		t.Row(
			launch,
			p.Landing.LatLng().String(),
			humanize.Comma(int64(p.Burst.Altitude))+" m",
			formatFlight(p.FlightDuration()),
			humanize.CommafWithDigits(p.Distance()/1000, 1)+" km",
		)
	}

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// formatFlight renders a flight time like 2h14m.
func formatFlight(d time.Duration) string {
	s := d.Round(time.Minute).String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	return s
}
