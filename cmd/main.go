package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/jaxxstorm/gitversion"
)

// Version will be set by build process
var Version = "dev"

type CLI struct {
	Repo        string `short:"r" help:"Repository path (default: current directory)"`
	GitHome     string `env:"GIT_HOME" help:"Alternate git installation; git is run from <git-home>/bin"`
	Native      bool   `help:"Read the repository with the built-in git implementation instead of the git executable"`
	Format      string `short:"f" default:"text" enum:"text,json,properties" help:"Output format"`
	Default     string `default:"unspecified" help:"Version printed when no tag is found"`
	Verbose     bool   `short:"v" help:"Enable debug logging"`
	ShowVersion bool   `help:"Show version information" name:"version"`

	stdout io.Writer `kong:"-"`
	stderr io.Writer `kong:"-"`
}

func main() {
	var cli CLI

	kong.Parse(&cli,
		kong.Name("gitversion"),
		kong.Description("Derive a build version from git describe and the checked-out branch"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	err := cli.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (c *CLI) Run() error {
	if c.ShowVersion {
		return c.showVersion()
	}

	return c.calculateVersion(context.Background())
}

func (c *CLI) showVersion() error {
	versionInfo := map[string]string{
		"version": Version,
		"name":    "gitversion",
	}

	if c.Format == "json" {
		return json.NewEncoder(c.out()).Encode(versionInfo)
	}

	fmt.Fprintf(c.out(), "gitversion version %s\n", Version)
	return nil
}

func (c *CLI) calculateVersion(ctx context.Context) error {
	logger := c.logger()

	repoPath := c.Repo
	if repoPath == "" {
		var err error
		repoPath, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
	}

	var source gitversion.Source
	if c.Native {
		repo, err := gitversion.OpenRepository(repoPath)
		if err != nil {
			// Not a git repository: nothing to describe
			logger.Debug("opening repository", "path", repoPath, "error", err)
			return c.writeResult(&gitversion.Result{})
		}
		source = gitversion.NewRepositorySource(repo)
	} else {
		source = gitversion.NewCommandSource(repoPath, c.GitHome, logger)
	}

	result, err := gitversion.Calculate(ctx, gitversion.Options{
		Source: source,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("calculating version: %w", err)
	}

	return c.writeResult(result)
}

func (c *CLI) writeResult(result *gitversion.Result) error {
	output := *result
	if output.Version == "" {
		output.Version = c.Default
	}

	switch c.Format {
	case "json":
		return json.NewEncoder(c.out()).Encode(output)
	case "properties":
		_, err := fmt.Fprintf(c.out(), "version=%s\nisRelease=%s\n",
			output.Version, strconv.FormatBool(output.IsRelease))
		return err
	default:
		_, err := fmt.Fprintln(c.out(), output.Version)
		return err
	}
}

func (c *CLI) logger() *slog.Logger {
	level := &slog.LevelVar{}
	level.Set(slog.LevelWarn)
	if c.Verbose {
		level.Set(slog.LevelDebug)
	}

	stderr := c.stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

func (c *CLI) out() io.Writer {
	if c.stdout == nil {
		return os.Stdout
	}
	return c.stdout
}
