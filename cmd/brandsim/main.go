// Command brandsim scores a URL or a local screenshot against a directory of
// brand reference images and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	brandsim "github.com/anatolykoptev/go-brandsim"
)

func main() {
	_ = godotenv.Load() // silently ignore if .env is missing
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 scored, 1 setup error, 2 usage, 3 not scored.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("brandsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		refDir     = fs.String("refs", envOr("BRANDSIM_REFERENCE_DIR", "Brands"), "directory of {brand}_ref images")
		captureDir = fs.String("captures", envOr("BRANDSIM_CAPTURE_DIR", "User"), "directory of {domain}_user screenshots")
		stage      = fs.String("stage", "", "copy this image into the capture directory and check the copy")
		firstLabel = fs.Bool("first-label", envBool("BRANDSIM_FIRST_LABEL"), "key brands by the first host label instead of the registrable domain")
		verifyTLS  = fs.Bool("verify-tls", envBool("BRANDSIM_VERIFY_TLS"), "verify certificates in the HTTP probe")
		threshold  = fs.Float64("threshold", envFloat("BRANDSIM_FUZZY_THRESHOLD", brandsim.DefaultFuzzyThreshold), "fuzzy brand match threshold (0-100)")
		chromePath = fs.String("chrome", os.Getenv("BRANDSIM_CHROME_PATH"), "Chrome executable (default: autodetect)")
		timeout    = fs.Duration("timeout", 90*time.Second, "overall deadline")
		explain    = fs.Bool("explain", false, "print the score breakdown to stderr")
		debug      = fs.Bool("debug", envBool("BRANDSIM_DEBUG"), "debug logging")
	)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: brandsim [flags] <url|image>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	input := fs.Arg(0)
	captures := brandsim.CaptureStore{Dir: *captureDir}
	if *stage != "" {
		f, err := os.Open(*stage)
		if err != nil {
			logger.Error("brandsim: open upload", "error", err)
			return 1
		}
		input, err = captures.Stage(*stage, f)
		f.Close()
		if err != nil {
			logger.Error("brandsim: stage upload", "error", err)
			return 1
		}
	}
	if input == "" {
		fs.Usage()
		return 2
	}

	domainKey := brandsim.DomainKeyRegistrable
	if *firstLabel {
		domainKey = brandsim.DomainKeyFirstLabel
	}

	cfg := &brandsim.Config{
		ReferenceDir:   *refDir,
		CaptureDir:     *captureDir,
		VerifyTLS:      *verifyTLS,
		DomainKey:      domainKey,
		FuzzyThreshold: *threshold,
		Logger:         logger,
		Capturer:       &brandsim.ChromeCapturer{ExecPath: *chromePath, Logger: logger},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	res := cfg.CheckWebsite(ctx, input)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("brandsim: encode result", "error", err)
		return 1
	}
	if *explain && res.Explanation != nil {
		fmt.Fprint(stderr, res.Explanation.String())
	}
	if res.Outcome != brandsim.OutcomeScored {
		return 3
	}
	return 0
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return def
	}
	return v
}
