// secretsvc is a command line tool to inspect and manage credentials
// stored in the Secret Service.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"go.abhg.dev/log/silog"
	"go.abhg.dev/secretservice"
)

var _version = "dev"

type globalOptions struct {
	Target string `name:"target" env:"SECRETSVC_TARGET" help:"Collection to store new entries in"`
}

type mainCmd struct {
	globalOptions

	Verbose bool             `short:"v" help:"Enable verbose output" env:"SECRETSVC_VERBOSE"`
	Version kong.VersionFlag `help:"Print version information and quit"`

	Get    getCmd    `cmd:"" help:"Print the secret of an entry"`
	Set    setCmd    `cmd:"" help:"Store the secret of an entry"`
	Delete deleteCmd `cmd:"" help:"Delete an entry"`
	Attrs  attrsCmd  `cmd:"" help:"Show or update the attributes of an entry"`
	Label  labelCmd  `cmd:"" help:"Show or change the label of an entry"`
	Export exportCmd `cmd:"" help:"Export an entry as YAML"`

	Collection collectionCmd `cmd:"" help:"Manage collections"`
}

func (cmd *mainCmd) AfterApply(kctx *kong.Context, logLevel *slog.LevelVar) error {
	if cmd.Verbose {
		logLevel.Set(slog.LevelDebug)
	}

	// The store is built on first use so that commands that never
	// touch the daemon (e.g. --help) work without a session bus.
	return kctx.BindToProvider(func(logger *slog.Logger) (*secretservice.Store, error) {
		return secretservice.NewStore(&secretservice.StoreOptions{Log: logger})
	})
}

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(silog.NewHandler(os.Stderr, &silog.HandlerOptions{
		Level: &logLevel,
	}))

	var cmd mainCmd
	parser, err := kong.New(&cmd,
		kong.Name("secretsvc"),
		kong.Description("secretsvc inspects and manages credentials stored in the Secret Service."),
		kong.Bind(logger, &logLevel, &cmd.globalOptions),
		kong.Vars{"version": _version},
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		panic(err)
	}

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		logger.Error("secretsvc: " + err.Error())
		os.Exit(1)
	}

	if err := kctx.Run(); err != nil {
		logger.Error("secretsvc: " + err.Error())
		os.Exit(1)
	}
}

// entry builds the credential named by the service and username
// arguments, honoring the global --target flag.
func entry(store *secretservice.Store, globals *globalOptions, service, username string) (*secretservice.Credential, error) {
	return store.Entry(service, username, &secretservice.EntryOptions{
		Target: globals.Target,
	})
}
