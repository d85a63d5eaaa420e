// Package shell is an interactive line editor for the timeline, driving the
// same Session the HTTP API uses.
package shell

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/logging"
	"github.com/clipforge/clipforge-agent/internal/project"
	"github.com/clipforge/clipforge-agent/internal/timeline"
)

// Prober supplies clip durations for imports that omit one.
type Prober interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

type Config struct {
	Session     *timeline.Session
	Projects    *project.Service
	Exports     *export.Service
	Prober      Prober
	HistoryPath string
	ExportDir   string
	Out         io.Writer
	Logger      *slog.Logger
}

type Shell struct {
	session     *timeline.Session
	projects    *project.Service
	exports     *export.Service
	prober      Prober
	historyPath string
	exportDir   string
	out         io.Writer
	logger      *slog.Logger

	projectID string
}

func New(cfg Config) *Shell {
	if cfg.Session == nil {
		cfg.Session = timeline.NewSession(nil)
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Shell{
		session:     cfg.Session,
		projects:    cfg.Projects,
		exports:     cfg.Exports,
		prober:      cfg.Prober,
		historyPath: cfg.HistoryPath,
		exportDir:   cfg.ExportDir,
		out:         cfg.Out,
		logger:      logging.WithComponent(logging.OrDiscard(cfg.Logger), "shell"),
	}
}

// Run reads commands until exit, EOF or interrupt.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "clipforge> ",
		HistoryFile:     s.historyPath,
		AutoComplete:    s.Completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(s.out, "=== ClipForge Shell ===")
	fmt.Fprintln(s.out, "Type 'help' for commands.")

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Fprintln(s.out, "Exiting shell...")
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !s.Handle(ctx, line) {
			return nil
		}
	}
}

func (s *Shell) Completer() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("import", readline.PcItemDynamic(listVideoFiles)),
		readline.PcItem("ls"),
		readline.PcItem("status"),
		readline.PcItem("remove"),
		readline.PcItem("select"),
		readline.PcItem("rename"),
		readline.PcItem("trim"),
		readline.PcItem("preview"),
		readline.PcItem("delete"),
		readline.PcItem("confirm"),
		readline.PcItem("cancel"),
		readline.PcItem("split"),
		readline.PcItem("repack"),
		readline.PcItem("clear"),
		readline.PcItem("seek"),
		readline.PcItem("play"),
		readline.PcItem("pause"),
		readline.PcItem("tick"),
		readline.PcItem("zoom",
			readline.PcItem("in"),
			readline.PcItem("out"),
			readline.PcItem("reset"),
		),
		readline.PcItem("plan",
			readline.PcItem("low"),
			readline.PcItem("medium"),
			readline.PcItem("high"),
		),
		readline.PcItem("export"),
		readline.PcItem("save"),
		readline.PcItem("load"),
		readline.PcItem("projects"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

// listVideoFiles completes import paths from the working directory.
func listVideoFiles(string) []string {
	entries, err := os.ReadDir(".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && timeline.IsVideoFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names
}
