package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tao-dosing-engine/internal/database"
	"github.com/tao-dosing-engine/internal/domain"
	"github.com/tao-dosing-engine/internal/dosing"
	"github.com/tao-dosing-engine/internal/history"
	"github.com/tao-dosing-engine/internal/service"
)

func (c *CLI) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// evaluate recommends a weekly dose for one INR result.
func (c *CLI) evaluate(ctx context.Context, args []string) error {
	fs := c.newFlagSet("evaluate")
	var (
		inr         = fs.Float64("inr", 0, "measured INR (required)")
		dose        = fs.Float64("dose", 0, "current weekly dose in mg (required)")
		guideline   = fs.String("guideline", "", "FCSA or ACCP (default from config)")
		target      = fs.String("target", "", "target range: standard, high or MIN-MAX")
		phase       = fs.String("phase", string(domain.PhaseMaintenance), "induction, stabilization or maintenance")
		missed      = fs.Bool("missed-doses", false, "patient reports missed or irregular doses")
		slow        = fs.Bool("slow-metabolizer", false, "patient is a slow warfarin metabolizer")
		bleeding    = fs.String("bleeding", string(domain.BleedingNone), "none, minor, major or life_threatening")
		site        = fs.String("bleeding-site", "", "bleeding site, for the record")
		valve       = fs.Bool("mechanical-valve", false, "patient has a mechanical heart valve")
		teDays      = fs.Int("te-days", -1, "days since the last thromboembolism, -1 if none")
		chads       = fs.Int("cha2ds2-vasc", 0, "CHA2DS2-VASc score")
		recentTTR   = fs.Float64("recent-ttr", -1, "recent TTR percentage, -1 to derive it from history")
		patientID   = fs.String("patient", "", "patient ID whose history supplies the recent TTR")
		evaluatedOn = fs.String("date", "", "evaluation date YYYY-MM-DD (default today)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	g, err := parseGuideline(*guideline)
	if err != nil {
		return err
	}
	tr, err := parseTarget(*target)
	if err != nil {
		return err
	}
	today, err := parseDate(*evaluatedOn, c.now())
	if err != nil {
		return err
	}

	req := domain.EvaluationRequest{
		INR:               *inr,
		Target:            tr,
		CurrentWeeklyDose: *dose,
		Phase:             domain.TherapyPhase(*phase),
		Compliant:         !*missed,
		SlowMetabolizer:   *slow,
		Bleeding:          domain.BleedingContext{Type: domain.BleedingType(*bleeding), Site: *site},
		Risk: domain.RiskInputs{
			MechanicalValve: *valve,
			CHA2DS2VASc:     *chads,
		},
	}
	if *teDays >= 0 {
		req.Risk.DaysSinceThromboembolism = teDays
	}
	if *recentTTR >= 0 {
		req.RecentTTR = recentTTR
	}

	run := func(svc *service.AnticoagulationService) error {
		assessment, err := svc.Evaluate(ctx, *patientID, req, g, today)
		if err != nil {
			return err
		}
		return c.printJSON(assessment)
	}
	if *patientID == "" || req.RecentTTR != nil {
		return run(c.newService(nil))
	}
	return c.withService(ctx, run)
}

// schedule splits a weekly dose into a day-by-day plan.
func (c *CLI) schedule(ctx context.Context, args []string) error {
	fs := c.newFlagSet("schedule")
	dose := fs.Float64("dose", 0, "weekly dose in mg (required)")
	loading := fs.Float64("loading", 0, "one-time loading supplement for today in mg")
	day := fs.String("day", "", "weekday the plan starts on (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	today := c.now().Weekday()
	if *day != "" {
		wd, err := parseWeekday(*day)
		if err != nil {
			return err
		}
		today = wd
	}

	s, err := dosing.SynthesizeWeeklySchedule(*dose, *loading, today)
	if err != nil {
		return err
	}
	return c.printJSON(s)
}

// ttr scores a patient's recorded history, or an export file given with -file.
func (c *CLI) ttr(ctx context.Context, args []string) error {
	fs := c.newFlagSet("ttr")
	patientID := fs.String("patient", "", "patient ID")
	file := fs.String("file", "", "score the observations of a JSON export instead of the store (- for stdin)")
	target := fs.String("target", "", "target range: standard, high or MIN-MAX")
	from := fs.String("from", "", "window start YYYY-MM-DD (inclusive)")
	to := fs.String("to", "", "window end YYYY-MM-DD (exclusive)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tr, err := parseTarget(*target)
	if err != nil {
		return err
	}
	window, err := parseWindow(*from, *to)
	if err != nil {
		return err
	}

	if *file != "" {
		return c.ttrFromFile(ctx, *file, *patientID, tr, window)
	}
	if *patientID == "" {
		return fmt.Errorf("-patient or -file is required")
	}
	return c.withService(ctx, func(svc *service.AnticoagulationService) error {
		result, err := svc.PatientTTR(ctx, *patientID, tr, window)
		if err != nil {
			return err
		}
		return c.printJSON(result)
	})
}

// ttrFromFile scores an export without touching the configured store.
func (c *CLI) ttrFromFile(ctx context.Context, path, patientID string, target domain.TargetRange, window *domain.DateWindow) error {
	r, closeFn, err := c.openInput(path)
	if err != nil {
		return err
	}
	defer closeFn()

	export, err := history.ReadExport(r)
	if err != nil {
		return err
	}
	snapshot := history.NewSnapshot(export.Observations)
	svc := service.NewAnticoagulationService(c.logger, snapshot, *c.config.GetEngineConfig())

	if patientID != "" {
		result, err := svc.PatientTTR(ctx, patientID, target, window)
		if err != nil {
			return err
		}
		return c.printJSON(result)
	}
	report, err := svc.CohortReport(ctx, target, window, c.config.GetConfig().Report.MaxConcurrency)
	if err != nil {
		return err
	}
	return c.printJSON(report)
}

// rolling prints rolling TTR windows and their trend.
func (c *CLI) rolling(ctx context.Context, args []string) error {
	fs := c.newFlagSet("rolling")
	patientID := fs.String("patient", "", "patient ID (required)")
	months := fs.Int("months", 0, "window length in months (default from config)")
	target := fs.String("target", "", "target range: standard, high or MIN-MAX")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *patientID == "" {
		return fmt.Errorf("-patient is required")
	}
	tr, err := parseTarget(*target)
	if err != nil {
		return err
	}

	return c.withService(ctx, func(svc *service.AnticoagulationService) error {
		result, err := svc.PatientRollingTTR(ctx, *patientID, tr, *months)
		if err != nil {
			return err
		}
		return c.printJSON(result)
	})
}

// record stores one INR observation.
func (c *CLI) record(ctx context.Context, args []string) error {
	fs := c.newFlagSet("record")
	patientID := fs.String("patient", "", "patient ID (required)")
	inr := fs.Float64("inr", 0, "measured INR (required)")
	dose := fs.Float64("dose", 0, "weekly dose in effect, mg")
	phase := fs.String("phase", "", "therapy phase")
	missed := fs.Bool("missed-doses", false, "patient reported missed doses")
	observedOn := fs.String("date", "", "observation date YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	day, err := parseDate(*observedOn, c.now())
	if err != nil {
		return err
	}
	obs := &domain.INRObservation{
		PatientID:  *patientID,
		Date:       day,
		INR:        *inr,
		WeeklyDose: *dose,
		Compliant:  !*missed,
		Phase:      domain.TherapyPhase(*phase),
	}

	return c.withService(ctx, func(svc *service.AnticoagulationService) error {
		if err := svc.RecordObservation(ctx, obs); err != nil {
			return err
		}
		return c.printJSON(obs)
	})
}

// export writes the whole history as a versioned JSON document.
func (c *CLI) export(ctx context.Context, args []string) error {
	fs := c.newFlagSet("export")
	out := fs.String("out", "-", "output file (- for stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if *out == "-" {
		return store.ExportJSON(ctx, c.stdout)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := store.ExportJSON(ctx, f); err != nil {
		return err
	}
	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	c.logger.WithField("file", *out).WithField("observations", count).Info("History exported")
	return f.Close()
}

// importHistory loads an export into the configured store.
func (c *CLI) importHistory(ctx context.Context, args []string) error {
	fs := c.newFlagSet("import")
	in := fs.String("in", "-", "input file (- for stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, closeFn, err := c.openInput(*in)
	if err != nil {
		return err
	}
	defer closeFn()

	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	imported, skipped, err := store.ImportJSON(ctx, r)
	if err != nil {
		return err
	}
	c.logger.WithField("imported", imported).WithField("skipped", skipped).Info("History imported")
	return c.printJSON(map[string]int{"imported": imported, "skipped": skipped})
}

// report scores every patient in the store.
func (c *CLI) report(ctx context.Context, args []string) error {
	fs := c.newFlagSet("report")
	target := fs.String("target", "", "target range: standard, high or MIN-MAX")
	from := fs.String("from", "", "window start YYYY-MM-DD (inclusive)")
	to := fs.String("to", "", "window end YYYY-MM-DD (exclusive)")
	workers := fs.Int("concurrency", 0, "patients scored in parallel (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tr, err := parseTarget(*target)
	if err != nil {
		return err
	}
	window, err := parseWindow(*from, *to)
	if err != nil {
		return err
	}
	if *workers <= 0 {
		*workers = c.config.GetConfig().Report.MaxConcurrency
	}

	return c.withService(ctx, func(svc *service.AnticoagulationService) error {
		summary, err := svc.CohortReport(ctx, tr, window, *workers)
		if err != nil {
			return err
		}
		return c.printJSON(summary)
	})
}

// migrate manages the Postgres schema: up, down or version.
func (c *CLI) migrate(ctx context.Context, args []string) error {
	storage := c.config.GetStorageConfig()
	if storage.Driver != "postgres" {
		return fmt.Errorf("migrate requires the postgres storage driver, got %s", storage.Driver)
	}

	action := "up"
	if len(args) > 0 {
		action = args[0]
	}

	runner, err := database.NewMigrationRunner(storage.PostgresURL, c.logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	switch action {
	case "up":
		err = runner.Up(ctx)
	case "down":
		err = runner.Down(ctx)
	case "version":
	default:
		return fmt.Errorf("unknown migrate action: %s", action)
	}
	if err != nil {
		return err
	}

	version, dirty, err := runner.Version()
	if err != nil {
		return err
	}
	return c.printJSON(map[string]any{"version": version, "dirty": dirty})
}

func (c *CLI) openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return c.stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
