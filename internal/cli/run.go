// run.go implements "greenroom run": a terminal interview driven by the
// session runtime with a real one-second heartbeat.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/greenroom-hq/greenroom/internal/anthropic"
	"github.com/greenroom-hq/greenroom/internal/config"
	"github.com/greenroom-hq/greenroom/internal/domain"
	"github.com/greenroom-hq/greenroom/internal/followup"
	"github.com/greenroom-hq/greenroom/internal/script"
	"github.com/greenroom-hq/greenroom/internal/session"
	"github.com/greenroom-hq/greenroom/internal/storage/remote"
	"github.com/greenroom-hq/greenroom/internal/storage/sqldb"
	"github.com/greenroom-hq/greenroom/internal/summarize"
	"github.com/greenroom-hq/greenroom/internal/tokens"
)

var runCmd = &cobra.Command{
	Use:   "run <script.yaml>",
	Short: "Run a scripted interview in the terminal",
	Long: `Run drives one interview attempt: it reads your answers from stdin,
counts each section down in real time, asks AI follow-up questions when time
allows, and prints the summary when the script is exhausted.

Type /next to leave a section early and /finish to end the interview.`,
	Args: cobra.ExactArgs(1),
	RunE: runInterview,
}

var (
	nameFlag  string
	emailFlag string
)

func init() {
	runCmd.Flags().StringVar(&nameFlag, "name", "", "Candidate name")
	runCmd.Flags().StringVar(&emailFlag, "email", "", "Candidate email")
}

func runInterview(cmd *cobra.Command, args []string) error {
	// Keep stdout clean for the interview itself.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	scr, err := script.LoadFile(args[0])
	if err != nil {
		return err
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithSummarizer(summarize.New()),
	}
	if gen := buildGenerator(cfg, logger); gen != nil {
		opts = append(opts, session.WithGenerator(gen))
	}
	if sink, err := buildSink(cfg); err != nil {
		logger.Warn("persistence disabled", slog.String("error", err.Error()))
	} else if sink != nil {
		if closer, ok := sink.(io.Closer); ok {
			defer closer.Close()
		}
		opts = append(opts, session.WithSink(sink))
	}

	rt := session.New(opts...)
	if err := rt.Start(*scr); err != nil {
		return err
	}
	if nameFlag != "" || emailFlag != "" {
		rt.SetParticipant(domain.Participant{Name: nameFlag, Email: emailFlag})
	}

	// External heartbeat: the runtime does no scheduling of its own.
	done := make(chan struct{})
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				rt.Tick()
			case <-done:
				return
			}
		}
	}()

	fmt.Printf("Interview: %s (%d sections)\n\n", scr.Title, len(scr.Sections))

	printed := 0
	printed = printNewUtterances(rt, printed)

	scanner := bufio.NewScanner(os.Stdin)
	for rt.State() == session.StateActive {
		fmt.Printf("[%ds left] > ", rt.TimeLeftSec())
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/next":
			rt.Advance()
		case "/finish":
			rt.Finish()
		default:
			rt.AddCandidate(line)
			// Wait for the follow-up round-trip so the question prints
			// before the next read.
			rt.Drain()
		}
		printed = printNewUtterances(rt, printed)
	}
	close(done)

	rt.Finish()
	rt.Drain()
	printNewUtterances(rt, printed)

	if snap := rt.Snapshot(); snap != nil && snap.Artifacts != nil {
		fmt.Printf("\n%s\n", snap.Artifacts.Summary)
		for _, score := range snap.Artifacts.Scores {
			fmt.Printf("  %s: %d/10\n", score.SectionID, score.Score)
		}
	}
	return scanner.Err()
}

func printNewUtterances(rt *session.Runtime, printed int) int {
	snap := rt.Snapshot()
	if snap == nil {
		return printed
	}
	for _, u := range snap.Transcript[printed:] {
		if u.Speaker == domain.SpeakerInterviewer {
			fmt.Printf("interviewer: %s\n", u.Text)
		}
	}
	return len(snap.Transcript)
}

// buildGenerator prefers a remote follow-up service, falls back to in-process
// generation, and returns nil when neither is configured.
func buildGenerator(cfg *config.Config, logger *slog.Logger) domain.FollowupGenerator {
	if cfg.Followups.ServiceURL != "" {
		return followup.NewClient(cfg.Followups.ServiceURL)
	}
	if cfg.Anthropic.APIKey == "" {
		logger.Warn("no follow-up service or API key configured, follow-ups disabled")
		return nil
	}
	genOpts := []followup.GeneratorOption{
		followup.WithModel(cfg.Anthropic.Model),
		followup.WithMaxTokens(cfg.Anthropic.MaxTokens),
		followup.WithAnswerBudget(cfg.Followups.AnswerBudgetTokens),
	}
	if truncator, err := tokens.NewTruncator(); err == nil {
		genOpts = append(genOpts, followup.WithTruncator(truncator))
	}
	return followup.NewGenerator(anthropic.NewClient(cfg.Anthropic.APIKey), genOpts...)
}

// buildSink hands finished sessions to the remote service when one is
// configured, otherwise to the local SQLite store.
func buildSink(cfg *config.Config) (domain.SessionSink, error) {
	if cfg.Followups.ServiceURL != "" {
		return remote.NewSink(cfg.Followups.ServiceURL), nil
	}
	if cfg.DB.Path == "" {
		return nil, nil
	}
	return sqldb.New(cfg.DB.Path)
}
