package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AxxAL/mwrap/pkg/lib"
	"github.com/AxxAL/mwrap/pkg/lib/config"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	opts := options{}

	root := &cobra.Command{
		Use:   "mwrap",
		Short: "Run a game server and keep it under control",
		Long: `mwrap starts the server jar, relays its console output and forwards every
line typed on stdin to it. The lines "start", "stop" and "restart" control the
server itself. Settings are read from mwrap.json, which is created with defaults
when missing.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := root.Flags()
	flags.StringVar(&opts.configPath, "config", config.DefaultFileName, "settings file, relative paths are resolved against --dir")
	flags.StringVar(&opts.dir, "dir", ".", "server directory the child runs in")
	flags.StringVar(&opts.java, "java", lib.DefaultExecutable, "java executable")
	flags.StringVar(&opts.jar, "jar", lib.DefaultJar, "server jar")
	flags.DurationVar(&opts.stopTimeout, "stop-timeout", 0, "kill the server if it has not exited this long after \"stop\" (0 waits forever)")
	flags.DurationVar(&opts.shutdownTimeout, "shutdown-timeout", time.Minute, "how long to wait for the server when mwrap itself exits")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9108")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log process spawn details")

	return root
}
