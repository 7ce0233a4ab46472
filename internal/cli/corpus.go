package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/retrieve"
	"github.com/ppiankov/factlens/internal/validate"
)

var (
	corpusJSON         bool
	corpusCheckTimeout time.Duration
)

// corpusCmd represents the corpus command
var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect the evidence corpus",
	Long: `Inspect the evidence corpus used for retrieval.

The built-in corpus is used unless corpus.path points at a YAML file.`,
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evidence items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, corpus, err := loadCorpus()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if corpusJSON {
			return writeJSON(out, corpus.Items())
		}
		for _, item := range corpus.Items() {
			fmt.Fprintf(out, "%-6s [%s] %-7s %s\n", item.ID, item.Credibility, item.Stance, item.Title)
			fmt.Fprintf(out, "       %s  %s\n", item.Source, item.URL)
		}
		fmt.Fprintf(out, "\n%d items\n", corpus.Len())
		return nil
	},
}

var corpusCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check evidence links and credibility tiers",
	Long: `Check issues a HEAD request to every evidence URL (honouring robots.txt),
reports dead links and flags items whose declared credibility tier disagrees
with the tier derived from the URL's domain.

Exits with an error when any link is dead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, corpus, err := loadCorpus()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), corpusCheckTimeout*time.Duration(max(1, corpus.Len())))
		defer cancel()

		checker := validate.NewLinkChecker(corpusCheckTimeout, cfg.Concurrency.ValidationWorkers, &cfg.Authority,
			cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, cfg.LLM.NoProxy)

		if verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Checking %d evidence links...\n", corpus.Len())
		}
		statuses := checker.Check(ctx, corpus.Items())

		out := cmd.OutOrStdout()
		if corpusJSON {
			if err := writeJSON(out, statuses); err != nil {
				return err
			}
		} else {
			printLinkStatuses(out, statuses)
		}

		dead := 0
		for _, s := range statuses {
			if s.Dead {
				dead++
			}
		}
		if dead > 0 {
			return fmt.Errorf("%d of %d evidence links are dead", dead, len(statuses))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(corpusCmd)
	corpusCmd.AddCommand(corpusListCmd)
	corpusCmd.AddCommand(corpusCheckCmd)

	corpusCmd.PersistentFlags().BoolVar(&corpusJSON, "json", false, "print JSON instead of text")
	corpusCheckCmd.Flags().DurationVar(&corpusCheckTimeout, "timeout", 15*time.Second, "timeout per request")
}

func loadCorpus() (*model.Config, *retrieve.Corpus, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	corpus, err := retrieve.Load(cfg.Corpus.Path, validate.NewAuthorityClassifier(&cfg.Authority))
	if err != nil {
		return nil, nil, fmt.Errorf("load corpus: %w", err)
	}
	return cfg, corpus, nil
}

func printLinkStatuses(w io.Writer, statuses []validate.LinkStatus) {
	for _, s := range statuses {
		var state string
		switch {
		case s.Disallowed:
			state = "SKIP"
		case s.Dead:
			state = "DEAD"
		case s.Reachable:
			state = "OK"
		default:
			state = "WARN"
		}

		notes := []string{}
		if s.StatusCode != 0 {
			notes = append(notes, fmt.Sprintf("HTTP %d", s.StatusCode))
		}
		if s.RedirectURL != "" {
			notes = append(notes, "→ "+s.RedirectURL)
		}
		if s.TierMismatch() {
			notes = append(notes, fmt.Sprintf("tier %s, domain suggests %s", s.Declared, s.Classified))
		}
		if s.Error != "" {
			notes = append(notes, s.Error)
		}

		fmt.Fprintf(w, "%-4s %-6s %s", state, s.EvidenceID, s.URL)
		if len(notes) > 0 {
			fmt.Fprintf(w, "  (%s)", strings.Join(notes, "; "))
		}
		fmt.Fprintln(w)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}
