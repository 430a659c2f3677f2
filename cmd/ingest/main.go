// Command ingest is the CLI for fetching, normalizing, validating and
// persisting course data outside the API server.
//
//	lms-ingest sync edx --course course-v1:MITx+6.00x+2024
//	lms-ingest normalize --lms canvas --file raw.json --out normalized.json
//	lms-ingest validate --file normalized.json
//	lms-ingest eligibility --file normalized.json --threshold 70
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/skillmint/lms-data/internal/config"
	"github.com/skillmint/lms-data/internal/connector"
	"github.com/skillmint/lms-data/internal/db"
	"github.com/skillmint/lms-data/internal/eligibility"
	"github.com/skillmint/lms-data/internal/lms"
	"github.com/skillmint/lms-data/internal/lms/canvas"
	"github.com/skillmint/lms-data/internal/lms/edx"
	"github.com/skillmint/lms-data/internal/lms/gclass"
	"github.com/skillmint/lms-data/internal/lms/moodle"
	"github.com/skillmint/lms-data/internal/store"
	"github.com/skillmint/lms-data/internal/validate"
)

var (
	flagCourse    string
	flagLMS       string
	flagFile      string
	flagOut       string
	flagThreshold float64
	flagNoStore   bool
	flagVerbose   bool
)

func main() {
	root := &cobra.Command{
		Use:           "lms-ingest",
		Short:         "Fetch, normalize, validate and persist LMS course data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	syncCmd := &cobra.Command{
		Use:       "sync [edx|canvas|moodle|google-classroom]",
		Short:     "Fetch a course from its source, normalize it and persist the result",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"edx", "canvas", "moodle", "google-classroom"},
		RunE:      runSync,
	}
	syncCmd.Flags().StringVar(&flagCourse, "course", "", "course identifier on the source (required)")
	syncCmd.Flags().StringVar(&flagOut, "out", "", "also write the normalized payload to this file")
	syncCmd.Flags().BoolVar(&flagNoStore, "no-store", false, "skip database persistence")
	syncCmd.MarkFlagRequired("course")

	normalizeCmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize a raw course aggregate from a file",
		RunE:  runNormalize,
	}
	normalizeCmd.Flags().StringVar(&flagLMS, "lms", "", "source the file came from (required)")
	normalizeCmd.Flags().StringVar(&flagFile, "file", "", "raw aggregate JSON file (required)")
	normalizeCmd.Flags().StringVar(&flagOut, "out", "", "write the normalized payload here instead of stdout")
	normalizeCmd.MarkFlagRequired("lms")
	normalizeCmd.MarkFlagRequired("file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a normalized payload file",
		RunE:  runValidate,
	}
	validateCmd.Flags().StringVar(&flagFile, "file", "", "normalized payload JSON file (required)")
	validateCmd.MarkFlagRequired("file")

	eligibilityCmd := &cobra.Command{
		Use:   "eligibility",
		Short: "Report per-learner completion from a normalized payload file",
		RunE:  runEligibility,
	}
	eligibilityCmd.Flags().StringVar(&flagFile, "file", "", "normalized payload JSON file (required)")
	eligibilityCmd.Flags().Float64Var(&flagThreshold, "threshold", 0, "eligibility threshold 0-100 (default from env)")
	eligibilityCmd.MarkFlagRequired("file")

	root.AddCommand(syncCmd, normalizeCmd, validateCmd, eligibilityCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads config and builds the logger every subcommand uses.
func setup() (*config.Config, *slog.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if flagVerbose || cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return cfg, logger, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	lmsID := args[0]
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	logger.Info("fetching course", "lms", lmsID, "course_id", flagCourse)
	payload, err := fetchNormalized(ctx, cfg, logger, lmsID, flagCourse)
	if err != nil {
		return fmt.Errorf("fetch %s course %s: %w", lmsID, flagCourse, err)
	}

	result := validate.Normalized(payload)
	if !result.Valid {
		logger.Warn("payload failed validation", "errors", len(result.Errors))
		for _, e := range result.Errors {
			logger.Warn("validation error", "detail", e)
		}
	}

	if flagOut != "" {
		if err := writePayload(flagOut, payload); err != nil {
			return err
		}
		logger.Info("payload written", "path", flagOut)
	}

	if flagNoStore || !cfg.HasDatabase() {
		if !cfg.HasDatabase() {
			logger.Info("no DATABASE_URL set, skipping persistence")
		}
		printSummary(payload)
		return nil
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	saved := store.Save(ctx, pool.Pool, payload)
	logger.Info("payload persisted", "summary", saved.Summary())
	for _, e := range saved.Errors {
		logger.Warn("row error", "detail", e)
	}

	if n, err := store.LearnerCount(ctx, pool.Pool, payload.Source.LMS, payload.Course.ID); err != nil {
		logger.Warn("learner count lookup failed", "course_id", payload.Course.ID, "error", err)
	} else {
		logger.Info("learners on record", "lms", payload.Source.LMS, "course_id", payload.Course.ID, "count", n)
	}
	printSummary(payload)
	return nil
}

func runNormalize(cmd *cobra.Command, args []string) error {
	_, logger, err := setup()
	if err != nil {
		return err
	}
	if _, ok := config.LMSRegistry[flagLMS]; !ok {
		return fmt.Errorf("unknown lms %q", flagLMS)
	}

	body, err := os.ReadFile(flagFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", flagFile, err)
	}

	payload, err := decodeAndNormalize(flagLMS, body)
	if err != nil {
		return fmt.Errorf("normalize %s aggregate: %w", flagLMS, err)
	}

	result := validate.Normalized(payload)
	logger.Info("normalized",
		"lms", flagLMS,
		"course_id", payload.Course.ID,
		"learners", len(payload.Learners),
		"instructors", len(payload.Instructors),
		"valid", result.Valid,
	)

	if flagOut != "" {
		if err := writePayload(flagOut, payload); err != nil {
			return err
		}
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, _, err := setup()
	if err != nil {
		return err
	}

	body, err := os.ReadFile(flagFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", flagFile, err)
	}
	var payload lms.NormalizedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	result := validate.Normalized(payload)
	if result.Valid {
		fmt.Println("valid")
		return nil
	}
	for _, e := range result.Errors {
		fmt.Println("invalid:", e)
	}
	return fmt.Errorf("payload failed validation with %d error(s)", len(result.Errors))
}

func runEligibility(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	threshold := cfg.EligibilityThreshold
	if cmd.Flags().Changed("threshold") {
		if flagThreshold < 0 || flagThreshold > 100 {
			return fmt.Errorf("threshold must be between 0 and 100, got %g", flagThreshold)
		}
		threshold = flagThreshold
	}

	body, err := os.ReadFile(flagFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", flagFile, err)
	}
	var payload lms.NormalizedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	report := eligibility.Build(payload, threshold)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// --------------------------------------------------------------------------
// Shared helpers
// --------------------------------------------------------------------------

func fetchNormalized(ctx context.Context, cfg *config.Config, logger *slog.Logger, lmsID, courseID string) (lms.NormalizedPayload, error) {
	rpm := cfg.ConnectorRequestsPerMinute
	switch lmsID {
	case lms.SourceEdx:
		raw, err := connector.NewEdxConnector(cfg.EdxBaseURL, cfg.EdxToken, rpm, logger).FetchCourse(ctx, courseID)
		if err != nil {
			return lms.NormalizedPayload{}, err
		}
		return edx.Normalize(*raw), nil
	case lms.SourceCanvas:
		raw, err := connector.NewCanvasConnector(cfg.CanvasBaseURL, cfg.CanvasToken, rpm, logger).FetchCourse(ctx, courseID)
		if err != nil {
			return lms.NormalizedPayload{}, err
		}
		return canvas.Normalize(*raw), nil
	case lms.SourceMoodle:
		raw, err := connector.NewMoodleConnector(cfg.MoodleBaseURL, cfg.MoodleToken, rpm, logger).FetchCourse(ctx, courseID)
		if err != nil {
			return lms.NormalizedPayload{}, err
		}
		return moodle.Normalize(*raw), nil
	case lms.SourceGoogleClassroom:
		raw, err := connector.NewGClassConnector(cfg.GClassBaseURL, cfg.GClassToken, rpm, logger).FetchCourse(ctx, courseID)
		if err != nil {
			return lms.NormalizedPayload{}, err
		}
		return gclass.Normalize(*raw), nil
	}
	return lms.NormalizedPayload{}, fmt.Errorf("unknown lms %q", lmsID)
}

func decodeAndNormalize(lmsID string, body []byte) (lms.NormalizedPayload, error) {
	switch lmsID {
	case lms.SourceEdx:
		var raw edx.RawCourse
		if err := json.Unmarshal(body, &raw); err != nil {
			return lms.NormalizedPayload{}, err
		}
		return edx.Normalize(raw), nil
	case lms.SourceCanvas:
		var raw canvas.RawCourse
		if err := json.Unmarshal(body, &raw); err != nil {
			return lms.NormalizedPayload{}, err
		}
		return canvas.Normalize(raw), nil
	case lms.SourceMoodle:
		var raw moodle.RawCourse
		if err := json.Unmarshal(body, &raw); err != nil {
			return lms.NormalizedPayload{}, err
		}
		return moodle.Normalize(raw), nil
	default:
		var raw gclass.RawCourse
		if err := json.Unmarshal(body, &raw); err != nil {
			return lms.NormalizedPayload{}, err
		}
		return gclass.Normalize(raw), nil
	}
}

func writePayload(path string, payload lms.NormalizedPayload) error {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printSummary(p lms.NormalizedPayload) {
	fmt.Printf("course=%s lms=%s instructors=%d learners=%d transcript=%d channels=%d missing_emails=%d\n",
		p.Course.ID, p.Source.LMS,
		len(p.Instructors), len(p.Learners),
		len(p.Transcript), len(p.Chat),
		p.Diagnostics.MissingEmailCount,
	)
}
