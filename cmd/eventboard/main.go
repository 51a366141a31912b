package main

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"eventboard/internal/capture"
	"eventboard/internal/config"
	appLog "eventboard/internal/log"
	"eventboard/internal/store"
	"eventboard/internal/web"
)

const version = "0.1.0"

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "eventboard",
		Usage:   "Browse, search and edit the events held by the event store.",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			captureCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("eventboard failed", err)
		os.Exit(1)
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Value:   "./eventboard.yaml",
		Usage:   "Path to config file (created with defaults if missing)",
		EnvVars: []string{"EVENTBOARD_CONFIG"},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	conf, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	return conf, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the event listing and detail pages.",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config if set)"},
			&cli.BoolFlag{Name: "snapshot", Usage: "Capture the listing on the configured cron schedule"},
		},
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			if l := c.String("listen"); l != "" {
				conf.Listen = l
			}
			if c.Bool("snapshot") {
				conf.Snapshot.Enabled = true
			}

			appLog.Info("effective config",
				"version", version,
				"listen", conf.Listen,
				"api_base_url", conf.APIBaseURL,
				"timezone", conf.Timezone,
				"default_category_id", conf.DefaultCategoryID,
				"snapshot", conf.Snapshot.Enabled,
			)

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := store.NewClient(conf.APIBaseURL, store.WithTimeout(conf.RequestTimeout()))
			srv, err := web.NewServer(conf, client)
			if err != nil {
				return fmt.Errorf("init web server: %w", err)
			}

			if conf.Snapshot.Enabled {
				sched, err := capture.NewScheduler(conf.Snapshot.Cron, snapshotOptions(conf, ""), capture.CapturePNG)
				if err != nil {
					return err
				}
				sched.Start(ctx)
			}

			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			appLog.Info("eventboard exiting")
			return nil
		},
	}
}

func captureCommand() *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Capture one PNG snapshot of a running eventboard page and exit.",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "url", Usage: "Page to capture (defaults to the configured listen address and page)"},
			&cli.StringFlag{Name: "out", Usage: "Output PNG path (overrides config if set)"},
		},
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			if out := c.String("out"); out != "" {
				conf.Snapshot.OutputPath = out
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := snapshotOptions(conf, c.String("url"))
			if err := capture.CapturePNG(ctx, opts); err != nil {
				return err
			}
			appLog.Info("snapshot written", "out", opts.OutputPath)
			return nil
		},
	}
}

// snapshotOptions builds capture options for the local server. Basic auth
// credentials, when configured, are embedded in the URL so the headless
// browser can pass the middleware.
func snapshotOptions(conf *config.Config, target string) capture.Options {
	if target == "" {
		target = localURL(conf.Listen, conf.Snapshot.Page)
	}
	if conf.BasicAuth != nil && conf.BasicAuth.Username != "" {
		if u, err := url.Parse(target); err == nil {
			u.User = url.UserPassword(conf.BasicAuth.Username, conf.BasicAuth.Password)
			target = u.String()
		}
	}
	return capture.Options{
		URL:        target,
		OutputPath: conf.Snapshot.OutputPath,
		Width:      conf.Snapshot.Width,
		Height:     conf.Snapshot.Height,
		Timeout:    time.Duration(capture.DefaultTimeoutSec) * time.Second,
	}
}

// localURL turns a listen address into a URL reachable from this host.
func localURL(listen, page string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		host, port = "127.0.0.1", "8080"
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	if !strings.HasPrefix(page, "/") {
		page = "/" + page
	}
	return "http://" + net.JoinHostPort(host, port) + page
}
