package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/islandport/actuator/internal/domain"
)

var replayVerbose bool

var replayCmd = &cobra.Command{
	Use:   "replay <trace.json>",
	Short: "Replay a recorded pointer trace against the engine",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "print every Skip decision too, not just Prefetch/Hydrate")
}

func loadTrace(path string) (domain.Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace %s: %w", path, err)
	}
	var trace domain.Trace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("parsing trace %s: %w", path, err)
	}
	return trace, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	trace, err := loadTrace(args[0])
	if err != nil {
		return err
	}

	root, err := loadRoot(cfgFile)
	if err != nil {
		return err
	}
	loop := buildLoop(root).Loop

	out := cmd.OutOrStdout()
	// Skip lines are mostly noise for a piped/CI consumer; only a live
	// terminal gets them without --verbose.
	printSkips := replayVerbose || isatty.IsTerminal(os.Stdout.Fd())
	var prefetches, hydrates, skips int

	for _, s := range trace {
		sample := domain.PointerSample{X: s.X, Y: s.Y, DtMs: s.DtMs}
		decision := loop.Tick(s.TMs, sample, nil)

		switch decision.Kind {
		case domain.DecisionPrefetch:
			prefetches++
		case domain.DecisionHydrate:
			hydrates++
		default:
			skips++
			if !printSkips {
				continue
			}
		}
		fmt.Fprintf(out, "t=%dms %s (%s) targets=%d\n", s.TMs, decision.Kind, decision.Reason, len(decision.Targets))
	}

	fmt.Fprintf(out, "\n%s samples replayed: %d prefetch, %d hydrate, %d skip\n",
		humanize.Comma(int64(len(trace))), prefetches, hydrates, skips)
	return nil
}
