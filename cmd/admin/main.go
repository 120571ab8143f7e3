package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/hackbot/internal/bootstrap"
	"github.com/angelmondragon/hackbot/internal/discord"
	"github.com/angelmondragon/hackbot/pkg/auth"
	"github.com/angelmondragon/hackbot/pkg/config"
	"github.com/angelmondragon/hackbot/pkg/enums"
	"github.com/angelmondragon/hackbot/pkg/logger"
)

var errTeardownUnconfirmed = errors.New("teardown deletes every team, member and registration; rerun with -yes")

type options struct {
	cmd     string
	staff   string
	role    string
	channel string
	confirm bool
}

func main() {
	os.Exit(run())
}

// run returns the process exit code so the deferred runtime close always runs.
func run() int {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "admin"})

	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "", "admin command: seed|teardown|token|commands|panel")
	flag.StringVar(&opts.staff, "staff", "", "moderator user id (for token)")
	flag.StringVar(&opts.role, "role", string(enums.StaffRoleModerator), "staff role (for token): moderator|organizer")
	flag.StringVar(&opts.channel, "channel", "registration", "text channel name (for panel)")
	flag.BoolVar(&opts.confirm, "yes", false, "confirm destructive commands (teardown)")
	flag.Parse()

	if opts.cmd == "" {
		fmt.Fprintln(os.Stderr, "missing -cmd")
		flag.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "resource not working: config", err)
		return 1
	}

	logg = logger.New(logger.Options{
		ServiceName: "admin",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
	})

	// token needs config only
	if opts.cmd == "token" {
		if err := mintToken(os.Stdout, cfg.Admin, opts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	rt, err := bootstrap.Build(ctx, bootstrap.Params{Config: cfg, Logger: logg})
	if err != nil {
		logg.Error(ctx, "resource not working: runtime", err)
		return 1
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logg.Error(context.Background(), "error closing runtime", err)
		}
	}()

	if err := runCommand(ctx, os.Stdout, rt, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func mintToken(out io.Writer, cfg config.AdminConfig, opts options) error {
	staffRole, err := enums.ParseStaffRole(opts.role)
	if err != nil {
		return err
	}
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		StaffID: opts.staff,
		Role:    staffRole,
	})
	if err != nil {
		return fmt.Errorf("failed to mint token: %w", err)
	}
	fmt.Fprintln(out, token)
	return nil
}

func runCommand(ctx context.Context, out io.Writer, rt *bootstrap.Runtime, opts options) error {
	switch opts.cmd {
	case "seed":
		inserted, err := rt.Teams.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
		fmt.Fprintf(out, "seeded %d new teams (%d in roster)\n", inserted, len(rt.Teams.Roster()))

	case "teardown":
		if !opts.confirm {
			return errTeardownUnconfirmed
		}
		if err := rt.Registrations.Teardown(ctx); err != nil {
			return fmt.Errorf("teardown failed: %w", err)
		}
		fmt.Fprintln(out, "teardown complete")

	case "commands":
		n, err := discord.RegisterCommands(ctx, rt.Bot.Session(), rt.Outbound, rt.Config.Discord.ApplicationID, rt.Config.Discord.GuildID)
		if err != nil {
			return fmt.Errorf("command registration failed: %w", err)
		}
		fmt.Fprintf(out, "registered %d commands\n", n)

	case "panel":
		msgID, err := rt.Bot.PostPanel(ctx, opts.channel, rt.Teams.Roster())
		if err != nil {
			return fmt.Errorf("posting panel failed: %w", err)
		}
		fmt.Fprintln(out, "posted panel message:", msgID)

	default:
		return fmt.Errorf("unknown -cmd value: %s", opts.cmd)
	}
	return nil
}
