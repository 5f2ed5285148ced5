package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/academate/internal/config"
	"github.com/kalambet/academate/internal/eval"
	"github.com/kalambet/academate/internal/tools"
)

// --- chat ---

const cliSession = "cli-session"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Chat with the assistant in the terminal. Type exit, quit or bye to leave.

Requires GOOGLE_API_KEY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()
		if cfg.Agent.APIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required for chat")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		session, _ := cmd.Flags().GetString("session")
		return runChat(ctx, a.runner, session, os.Stdin, os.Stdout)
	},
}

func init() {
	chatCmd.Flags().String("session", cliSession, "session id for the conversation")
}

type asker interface {
	Ask(ctx context.Context, sessionID, question string) (string, error)
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit", "bye":
		return true
	}
	return false
}

// runChat reads questions line by line until EOF or an exit word. Failed
// answers are reported and the loop continues.
func runChat(ctx context.Context, a asker, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, colorize(colorBold, "Academate")+" - ask about exams, timetables, papers, faculty, events or results.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isExit(line) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		answer, err := a.Ask(ctx, sessionID, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			printError("%v", err)
			continue
		}
		fmt.Fprintf(out, "\n%s %s\n", colorize(colorCyan, "Academate:"), answer)
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

// --- ask ---

type askFlag struct {
	name  string
	arg   string
	usage string
}

type askSpec struct {
	use      string
	short    string
	tool     string
	flags    []askFlag
	required []string
}

var askSpecs = []askSpec{
	{
		use: "exams", short: "Exam schedule for a department and semester", tool: tools.ExamSchedule,
		flags: []askFlag{
			{"department", "department", "department name"},
			{"semester", "semester", "semester number"},
			{"year", "academic_year", "academic year, e.g. 2024-25"},
		},
		required: []string{"department", "semester"},
	},
	{
		use: "papers", short: "Previous question papers for a subject", tool: tools.PreviousPapers,
		flags: []askFlag{
			{"subject", "subject_code", "subject code, e.g. CS301"},
			{"years", "years", "how many years back"},
			{"type", "paper_type", "paper type, e.g. End Semester"},
		},
		required: []string{"subject"},
	},
	{
		use: "timetable", short: "Weekly class timetable", tool: tools.ClassTimetable,
		flags: []askFlag{
			{"student", "student_id", "student id"},
			{"department", "department", "department name"},
			{"semester", "semester", "semester number"},
			{"section", "section", "section"},
			{"day", "week_day", "single weekday"},
		},
	},
	{
		use: "faculty", short: "Faculty details by id, name or department", tool: tools.FacultyInfo,
		flags: []askFlag{
			{"id", "faculty_id", "faculty id"},
			{"name", "name", "name or part of it"},
			{"department", "department", "department name"},
		},
	},
	{
		use: "calendar", short: "Upcoming academic events", tool: tools.AcademicCalendar,
		flags: []askFlag{
			{"type", "event_type", "event type, e.g. Holiday"},
			{"days", "days_ahead", "days ahead to look"},
			{"past", "include_past", "include past events (true/false)"},
		},
	},
	{
		use: "results", short: "Student results with semester summaries", tool: tools.StudentResults,
		flags: []askFlag{
			{"student", "student_id", "student id"},
			{"semester", "semester", "semester number"},
			{"year", "academic_year", "academic year"},
		},
		required: []string{"student"},
	},
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Run a lookup directly, without the model",
	Long: `Run a lookup directly, without the model.

Examples:
  academate ask exams --department "Computer Science" --semester 3
  academate ask timetable --student CS2024001 --day Monday
  academate ask calendar --type Holiday --days 60`,
}

func newAskCmd(spec askSpec) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			_, registry, err := newRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			out, err := registry.Call(cmd.Context(), spec.tool, askArgs(cmd, spec))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	for _, f := range spec.flags {
		cmd.Flags().String(f.name, "", f.usage)
	}
	for _, name := range spec.required {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

// askArgs passes only flags the user set; the tool layer coerces the strings.
func askArgs(cmd *cobra.Command, spec askSpec) tools.Args {
	args := tools.Args{}
	for _, f := range spec.flags {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		v, _ := cmd.Flags().GetString(f.name)
		args[f.arg] = v
	}
	return args
}

func init() {
	for _, spec := range askSpecs {
		askCmd.AddCommand(newAskCmd(spec))
	}
}

// --- eval ---

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run the built-in tool checks against the datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		_, registry, err := newRegistry(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		results := eval.Run(cmd.Context(), registry, eval.DefaultCases())

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
		} else {
			printResults(cmd.OutOrStdout(), results)
		}

		if !eval.Passed(results) {
			return fmt.Errorf("evaluation failed")
		}
		return nil
	},
}

func init() {
	evalCmd.Flags().Bool("json", false, "print results as JSON")
}

func printResults(w io.Writer, results []eval.Result) {
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
			fmt.Fprintln(w, colorize(colorGreen, "✓ "+r.Name))
		} else {
			fmt.Fprintln(w, colorize(colorRed, "✗ "+r.Name))
		}
		if r.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", r.Error)
		} else {
			fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(r.Preview, "\n", " "))
		}
	}
	fmt.Fprintf(w, "\n%d/%d passed\n", passed, len(results))
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s  (%s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		if cfg.Agent.APIKey == "" {
			printWarning("GOOGLE_API_KEY is not set")
		}
		printStatus("Config file", "%s", config.ConfigFilePath())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
