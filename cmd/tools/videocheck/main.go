// Command videocheck analyzes a piece of video evidence: it transcribes the
// audio and scores the footage for deepfake likelihood, printing a report for
// a reviewer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/appwhistler/factcheckd/internal/core/videoverify"
)

const errFmt = "%v\n"

var errURLRequired = errors.New("video url is required (-url)")

func main() {
	var (
		videoURL    string
		pollTimeout time.Duration
		asJSON      bool
	)

	flag.StringVar(&videoURL, "url", "", "URL of the video to analyze")
	flag.DurationVar(&pollTimeout, "timeout", 5*time.Minute, "Transcription poll timeout")
	flag.BoolVar(&asJSON, "json", false, "Print the report as JSON")

	flag.Parse()

	if videoURL == "" {
		fmt.Fprintf(os.Stderr, errFmt, errURLRequired)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	analyzer := videoverify.NewAnalyzer(videoverify.Config{
		AssemblyAIKey: os.Getenv("ASSEMBLYAI_API_KEY"),
		DeepwareKey:   os.Getenv("DEEPWARE_API_KEY"),
		PollTimeout:   pollTimeout,
	}, &logger)

	report := analyzer.Analyze(ctx, videoURL)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, errFmt, err)
			os.Exit(1)
		}

		return
	}

	fmt.Printf("recommendation: %s\n", report.Recommendation)
	fmt.Printf("deepfake score: %.2f (likely deepfake: %t)\n", report.DeepfakeScore, report.IsLikelyDeepfake)

	if report.Transcript != "" {
		fmt.Printf("transcript:\n%s\n", report.Transcript)
	}
}
