// Package main provides the entry point for the tourist remover: it runs
// load/align/blend/save commands against a folder of photographs of one scene.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tourist-remover/internal/app"
	"tourist-remover/internal/features"
	"tourist-remover/internal/project"
	"tourist-remover/internal/version"
)

const appTitle = "Tourist Remover"

// cmdList collects repeated -cmd flags.
type cmdList []string

func (c *cmdList) String() string     { return strings.Join(*c, "; ") }
func (c *cmdList) Set(v string) error { *c = append(*c, v); return nil }

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "", "Path to YAML config file")
	jobPath := flag.String("job", "", "Path to YAML job file")
	verbose := flag.Bool("v", false, "Verbose logging")
	intermediate := flag.Bool("intermediate", false, "Write highlight images after each align")
	watch := flag.Bool("watch", false, "Rerun the job whenever its file changes")
	showVersion := flag.Bool("version", false, "Print version and exit")
	var cmds cmdList
	flag.Var(&cmds, "cmd", `Command to run, e.g. -cmd 'load "photos"' (repeatable)`)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", appTitle, version.String())
		return
	}
	if *jobPath == "" && len(cmds) == 0 {
		fmt.Println("Usage: tourist-remover [-config <file>] (-job <file> | -cmd '<verb> <args>' ...)")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := app.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = app.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *verbose {
		cfg.Verbose = true
	}
	if *intermediate {
		cfg.ShowIntermediate = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Printf("Starting %s v%s", appTitle, version.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registrar, closeFeatures := features.NewRegistrar(cfg.AlignmentOptions())
	defer closeFeatures()

	run := func() error {
		all, err := commandList(*jobPath, cmds)
		if err != nil {
			return err
		}
		state := app.NewState(cfg, registrar)
		logEvents(state)

		exec := app.NewExecutor(state)
		if err := exec.Parse(all); err != nil {
			return err
		}
		return exec.Run(ctx)
	}

	if err := run(); err != nil {
		log.Printf("Run failed: %v", err)
		if !*watch {
			os.Exit(1)
		}
	}
	if !*watch || *jobPath == "" {
		return
	}

	watcher := app.NewFileWatcher(*jobPath, 2*time.Second)
	if watcher == nil {
		log.Fatalf("Watch: unable to stat %s", *jobPath)
	}
	rerun := make(chan struct{}, 1)
	watcher.OnChange(func() {
		select {
		case rerun <- struct{}{}:
		default:
		}
	})
	watcher.Start()
	defer watcher.Stop()
	log.Printf("Watch: watching %s", watcher.Path())

	for {
		select {
		case <-ctx.Done():
			return
		case <-rerun:
			log.Printf("Watch: %s changed, rerunning", watcher.Path())
			if err := run(); err != nil {
				log.Printf("Run failed: %v", err)
			}
		}
	}
}

// commandList builds the job's commands followed by any -cmd flags.
func commandList(jobPath string, extra []string) ([]string, error) {
	var all []string
	if jobPath != "" {
		job, err := project.Load(jobPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load job: %w", err)
		}
		all = job.Commands(jobPath)
	}
	return append(all, extra...), nil
}

func logEvents(state *app.State) {
	for _, ev := range []app.EventType{
		app.EventSourceLoaded, app.EventAligned, app.EventAlignmentSkipped, app.EventBlended,
		app.EventSaved, app.EventPreviewWritten, app.EventHighlightWritten, app.EventReset,
	} {
		state.On(ev, func(data interface{}) {
			switch v := data.(type) {
			case nil:
				log.Printf("%s", ev)
			case fmt.Stringer:
				log.Printf("%s: %s", ev, v)
			default:
				log.Printf("%s: %v", ev, v)
			}
		})
	}
}
