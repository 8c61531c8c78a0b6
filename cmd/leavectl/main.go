package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arnavshah/leave-scheduler-go/pkg/auth"
	"github.com/arnavshah/leave-scheduler-go/pkg/calendar"
	"github.com/arnavshah/leave-scheduler-go/pkg/config"
	"github.com/arnavshah/leave-scheduler-go/pkg/export"
	"github.com/arnavshah/leave-scheduler-go/pkg/logging"
	"github.com/arnavshah/leave-scheduler-go/pkg/scheduler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "leavectl",
		Short:         "Offline leave scheduling and admin tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newGenerateCmd(),
		newValidateCmd(),
		newTokenCmd(),
		newHashPasswordCmd(),
		newAPIKeyCmd(),
	)
	return root
}

func newGenerateCmd() *cobra.Command {
	var (
		file     string
		format   string
		optimize bool
		weekends bool
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a schedule from a roster file",
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := loadRoster(file)
			if err != nil {
				return err
			}
			logger := zap.NewNop()
			if verbose {
				if logger, err = logging.New("debug", "console"); err != nil {
					return err
				}
			}
			cal := calendar.FromConfiguration(roster.Configuration, weekends)
			session := scheduler.NewSession(roster.Soldiers, roster.Configuration,
				scheduler.WithLogger(logger), scheduler.WithDayWeights(cal.Weight))

			if _, err := session.Generate(); err != nil {
				return err
			}
			swaps := 0
			if optimize {
				if swaps, err = session.Optimize(); err != nil {
					return err
				}
			}
			return writeSchedule(cmd.OutOrStdout(), session, format, swaps)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "roster YAML file")
	cmd.Flags().StringVar(&format, "format", "txt", "output format: txt, csv or json")
	cmd.Flags().BoolVar(&optimize, "optimize", false, "run the fairness pass after generating")
	cmd.Flags().BoolVar(&weekends, "weekends", true, "weigh Fridays and Saturdays as high-demand days")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log scheduling decisions to stderr")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func writeSchedule(w io.Writer, session *scheduler.Session, format string, swaps int) error {
	schedule, err := session.Schedule()
	if err != nil {
		return err
	}
	switch format {
	case "txt":
		return export.WriteText(w, schedule, session.Roster())
	case "csv":
		return export.WriteCSV(w, schedule)
	case "json":
		stats, err := session.Stats()
		if err != nil {
			return err
		}
		soldierStats, err := session.SoldierStats()
		if err != nil {
			return err
		}
		validation, err := session.Validation()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"schedule":      schedule,
			"conflicts":     session.Conflicts(),
			"stats":         stats,
			"soldier_stats": soldierStats,
			"validation":    validation,
			"swaps":         swaps,
		})
	default:
		return fmt.Errorf("unknown format %q, expected txt, csv or json", format)
	}
}

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a roster file without generating",
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := loadRoster(file)
			if err != nil {
				return err
			}
			err = scheduler.ValidateConfiguration(roster.Soldiers, roster.Configuration)
			var cfgErr *scheduler.ConfigurationError
			if errors.As(err, &cfgErr) {
				for _, p := range cfgErr.Problems() {
					fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", p)
				}
				return fmt.Errorf("roster is invalid: %d problem(s)", len(cfgErr.Problems()))
			}
			if err != nil {
				return err
			}
			days, _ := roster.Configuration.Horizon()
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %d soldiers, %d days, %d home slots\n",
				len(roster.Soldiers), len(days),
				scheduler.TotalHomeSlots(len(roster.Soldiers), len(days), roster.Configuration.SoldiersInBase))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "roster YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <username>",
		Short: "Issue an admin access token signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := auth.NewManager(cfg.JWTSecret, cfg.APIMasterSecret, cfg.TokenTTL).CreateToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password must not be empty")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newAPIKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apikey <client>",
		Short: "Sign an integration key with API_MASTER_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			key, err := auth.NewManager(cfg.JWTSecret, cfg.APIMasterSecret, cfg.TokenTTL).GenerateAPIKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated key for %s:\n%s\n", args[0], key)
			return nil
		},
	}
}
