package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mreide/reviewd/internal/config"
	"github.com/mreide/reviewd/internal/gitlab"
	"github.com/mreide/reviewd/internal/infra"
	"github.com/mreide/reviewd/internal/output"
	"github.com/mreide/reviewd/internal/providers"
	"github.com/mreide/reviewd/internal/review"
)

// Shared review flags
var (
	flagGitLabURL     string
	flagProvider      string
	flagModel         string
	flagFormat        string
	flagOut           string
	flagFailOn        string
	flagMaxFindings   int
	flagMaxDiffBytes  int
	flagRules         string
	flagSubmitComment bool
	flagLineComments  bool
	flagTimeout       time.Duration
)

func addReviewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagGitLabURL, "gitlab-url", "", "GitLab instance base URL")
	cmd.Flags().StringVar(&flagProvider, "provider", "", "Review provider (anthropic, openai, ollama, static)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	cmd.Flags().IntVar(&flagMaxDiffBytes, "max-diff-bytes", 0, "Maximum diff size in bytes")
	cmd.Flags().IntVar(&flagMaxFindings, "max-findings", 0, "Maximum number of findings")
	cmd.Flags().StringVar(&flagRules, "rules", "", "Rules file path")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagGitLabURL != "" {
		m["gitlabURL"] = flagGitLabURL
	}
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagMaxDiffBytes > 0 {
		m["maxDiffBytes"] = fmt.Sprintf("%d", flagMaxDiffBytes)
	}
	if flagMaxFindings > 0 {
		m["maxFindings"] = fmt.Sprintf("%d", flagMaxFindings)
	}
	if flagRules != "" {
		m["rulesFile"] = flagRules
	}
	return m
}

var reviewCmd = &cobra.Command{
	Use:   "review <mr-url>",
	Short: "Review a GitLab merge request",
	Long:  "Review a single GitLab merge request by URL. With --submit-comment and --line-comments the results are posted back to the MR.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		log := infra.NewStdLogger()
		svc, err := review.NewService(cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
		defer cancel()

		resp, err := svc.Review(ctx, review.Request{
			MRURL:         args[0],
			SubmitComment: flagSubmitComment,
			LineComments:  flagLineComments,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			var authErr *gitlab.AuthError
			switch {
			case providers.IsAuthError(err), errors.As(err, &authErr):
				exitCode = ExitAuthError
			default:
				exitCode = ExitRuntimeError
			}
			return nil
		}

		if err := output.WriteResponse(resp, flagFormat, flagOut); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		if flagFailOn != "none" && flagFailOn != "" && resp.Review != nil {
			threshold := review.SeverityRank(review.Severity(flagFailOn))
			for _, f := range resp.Review.Findings {
				if review.SeverityRank(f.Severity) >= threshold {
					exitCode = ExitFindings
					return nil
				}
			}
		}
		return nil
	},
}

func init() {
	addReviewFlags(reviewCmd)
	reviewCmd.Flags().BoolVar(&flagSubmitComment, "submit-comment", false, "Post a summary comment to the MR")
	reviewCmd.Flags().BoolVar(&flagLineComments, "line-comments", false, "Post line comments for findings")
	reviewCmd.Flags().StringVar(&flagFormat, "format", "text", "Output format (text, json)")
	reviewCmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	reviewCmd.Flags().StringVar(&flagFailOn, "fail-on", "none", "Fail on severity threshold (none, low, medium, high)")
	reviewCmd.Flags().DurationVar(&flagTimeout, "timeout", 10*time.Minute, "Overall review timeout")
}
