package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/canonical/rocks-toolbox/src/broker"
	"github.com/canonical/rocks-toolbox/src/config"
	"github.com/canonical/rocks-toolbox/src/launchpad"
	"github.com/canonical/rocks-toolbox/src/logger"
	"github.com/canonical/rocks-toolbox/src/orchestrator"
	"github.com/canonical/rocks-toolbox/src/provider"
	"github.com/canonical/rocks-toolbox/src/store"
	"github.com/canonical/rocks-toolbox/src/telemetry"
	"github.com/canonical/rocks-toolbox/src/tui"
)

const publicUploadWarning = `Your current directory will be sent to Launchpad and will be public!
Are you sure you want to continue? [press y to continue]: `

// confirmPublicUpload asks the user to acknowledge that the project becomes
// public. Only an answer of exactly "y" confirms.
func confirmPublicUpload(in io.Reader, out io.Writer, accepted bool) bool {
	if accepted {
		return true
	}
	fmt.Fprintln(out, publicUploadWarning)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	return strings.TrimRight(answer, "\r\n") == "y"
}

// openStore returns the Postgres store for dsn, or a memory store when dsn
// is empty.
func openStore(ctx context.Context, dsn string) (store.Store, error) {
	if dsn == "" {
		return store.NewMemoryStore(), nil
	}
	st, err := store.NewPostgresStore(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return st, nil
}

// openBroker returns the in-memory broker feeding the status view, fanned
// out to Redpanda when seed brokers are given.
func openBroker(seeds []string, log logger.Logger) (*broker.InMemoryBroker, broker.Broker, error) {
	mem := broker.NewInMemoryBroker()
	if len(seeds) == 0 {
		return mem, mem, nil
	}
	rp, err := broker.NewRedpandaBroker(seeds, log)
	if err != nil {
		mem.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redpanda: %w", err)
	}
	return mem, broker.Fanout{mem, rp}, nil
}

func newLogger(cfg *config.Config) logger.Logger {
	if cfg.TUI {
		return logger.NewSilentLogger()
	}
	log := logger.NewConsoleLogger()
	log.SetVerbose(cfg.Verbose)
	return log
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !confirmPublicUpload(cmd.InOrStdin(), cmd.OutOrStdout(), cfg.AcceptPublicUpload) {
		return nil
	}

	creds, err := launchpad.LoadCredentials(cfg.CredentialsB64, cfg.CredentialsFile)
	if err != nil {
		return provider.WrapError(fmt.Errorf("%w: %v", provider.ErrAuthFailed, err))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TUI && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(cmd.ErrOrStderr(), "stdout is not a terminal, disabling --tui")
		cfg.TUI = false
	}
	log := newLogger(cfg)

	if cfg.Trace != "" {
		traceFile, err := os.Create(cfg.Trace)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		defer traceFile.Close()

		shutdown, err := telemetry.InitTracer("lpci-build", version, traceFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to flush traces: %v", err)
			}
		}()
	}

	st, err := openStore(ctx, cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	mem, brk, err := openBroker(cfg.Brokers, log)
	if err != nil {
		return err
	}
	defer brk.Close()

	projectDir := "."
	if len(args) > 0 {
		projectDir = args[0]
	}

	lp := launchpad.NewProvider(launchpad.APIRoot(cfg.Service), creds)
	orch := orchestrator.New(lp, orchestrator.Options{
		ProjectDir:         projectDir,
		LogDir:             cfg.LogDir,
		Timeout:            cfg.TimeoutDuration(),
		AllowBuildFailures: cfg.AllowBuildFailures,
		Exclude:            []string{cfg.CredentialsFile},
	}, log)
	orch.SetRecorder(orchestrator.NewRecorder(st, brk, log))

	var result *orchestrator.Result
	if cfg.TUI {
		result, err = runWithStatusView(ctx, orch, mem)
	} else {
		result, err = orch.Run(ctx)
	}

	if result != nil {
		fmt.Fprintln(cmd.OutOrStdout(), result.String())
	}
	return provider.WrapError(err)
}

// runWithStatusView runs orch in the background while the status view
// renders its events. Quitting the view cancels the run.
func runWithStatusView(ctx context.Context, orch *orchestrator.Orchestrator, events broker.Broker) (*orchestrator.Result, error) {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	viewCtx, stopView := context.WithCancel(ctx)
	defer stopView()

	sub, err := tui.Subscribe(viewCtx, events)
	if err != nil {
		return nil, err
	}

	var (
		result *orchestrator.Result
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stopView()
		result, runErr = orch.Run(runCtx)
	}()

	viewErr := tui.Run(viewCtx, orch.RunID(), sub)
	cancelRun()
	<-done

	if runErr != nil {
		return result, runErr
	}
	return result, viewErr
}
