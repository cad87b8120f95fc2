package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"golang.org/x/term"

	"github.com/beanbocchi/genestack/config"
	"github.com/beanbocchi/genestack/internal/utils/progress"
	"github.com/beanbocchi/genestack/pkg/sdk"
	"github.com/beanbocchi/genestack/pkg/telemetry"
)

const usage = `Usage: genestack [flags] <command> [args...]

Commands:
  whoami                                  print the signed-in user
  version                                 print the client version and update notices
  invoke <application> <method> [param...] invoke a method; params are JSON values
  upload <application> <token> <file>     upload a file

Flags:
`

// App is the command-line client. Its writers and password prompt can be
// replaced in tests.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	Prompt config.PasswordPrompt

	// Telemetry providers left nil fall back to the global OpenTelemetry
	// providers, which record nothing until the embedding program sets them.
	Telemetry telemetry.Config
}

// Start runs the command line against the process's standard streams.
func Start(args []string) error {
	app := &App{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Prompt: terminalPrompt,
	}
	return app.Run(context.Background(), args)
}

func (a *App) Run(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("genestack", pflag.ContinueOnError)
	flags.SetOutput(a.Stderr)
	flags.SetInterspersed(false)
	host := flags.StringP("host", "H", "", "server host")
	user := flags.StringP("user", "u", "", "user alias from settings or email")
	password := flags.StringP("password", "p", "", "user password")
	configPath := flags.String("config", "", "settings file (default $HOME/.genestack/settings.yaml)")
	flags.Usage = func() {
		fmt.Fprint(a.Stderr, usage)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return errors.New("no command given")
	}
	command, commandArgs := rest[0], rest[1:]
	if err := checkArgs(command, commandArgs); err != nil {
		flags.Usage()
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := SetupLogger(cfg.Log, a.Stderr)

	provider := &config.Provider{
		Config:   cfg,
		Host:     *host,
		Password: *password,
		Prompt:   a.Prompt,
	}
	mgr, err := a.telemetry()
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	session, err := sdk.Connect(ctx, provider, *user, sdk.SessionConfig{
		HTTPClient:    &http.Client{Timeout: cfg.Client.Timeout},
		Logger:        logger,
		Telemetry:     mgr,
		MaxUploadHops: cfg.Client.MaxUploadHops,
		Progress: func() sdk.ProgressReporter {
			return progress.New(cfg.Client.Progress, a.Stderr)
		},
	})
	if err != nil {
		return err
	}
	defer session.Close()

	switch command {
	case "whoami":
		email, err := session.WhoAmI(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.Stdout, email)
		return nil

	case "version":
		notice, err := session.CheckVersion(ctx, sdk.Version)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Stdout, "genestack client %s\n", sdk.Version)
		if notice != "" {
			fmt.Fprintln(a.Stdout, notice)
		}
		return nil

	case "invoke":
		app, err := session.Application(commandArgs[0])
		if err != nil {
			return err
		}
		result, err := app.Invoke(ctx, commandArgs[1], parseParams(commandArgs[2:])...)
		if err != nil {
			return err
		}
		return a.print(result)

	case "upload":
		app, err := session.Application(commandArgs[0])
		if err != nil {
			return err
		}
		result, err := app.UploadFile(ctx, commandArgs[2], commandArgs[1])
		if err != nil {
			return err
		}
		return a.print(result)
	}
	return nil
}

func checkArgs(command string, args []string) error {
	switch command {
	case "whoami", "version":
		if len(args) != 0 {
			return fmt.Errorf("%s takes no arguments", command)
		}
	case "invoke":
		if len(args) < 2 {
			return errors.New("invoke needs an application and a method")
		}
	case "upload":
		if len(args) != 3 {
			return errors.New("upload needs an application, a token and a file")
		}
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

// parseParams decodes each argument as JSON, keeping it as a plain string
// when it is not valid JSON.
func parseParams(args []string) []any {
	params := make([]any, 0, len(args))
	for _, arg := range args {
		var value any
		if err := sonic.ConfigStd.UnmarshalFromString(arg, &value); err != nil {
			value = arg
		}
		params = append(params, value)
	}
	return params
}

func (a *App) print(result any) error {
	text, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(a.Stdout, string(text))
	return err
}

func terminalPrompt(email string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for interactive password prompt (use -p)")
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", email)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

// SetupLogger installs and returns the process logger. Format "auto" picks
// text when w is a terminal and JSON otherwise.
func SetupLogger(cfg config.Log, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	options := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, options)
	case "text":
		handler = slog.NewTextHandler(w, options)
	default:
		if isTerminal(w) {
			handler = slog.NewTextHandler(w, options)
		} else {
			handler = slog.NewJSONHandler(w, options)
		}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *App) telemetry() (*telemetry.Manager, error) {
	cfg := a.Telemetry
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	return telemetry.NewManager(cfg)
}
