package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cmdoverlay/catalog"
	"cmdoverlay/config"
	"cmdoverlay/db"
	"cmdoverlay/inject"
	"cmdoverlay/logger"
	"cmdoverlay/model"
	"cmdoverlay/runner"
	"cmdoverlay/ui"
	"cmdoverlay/wizard"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string
	cfg        config.Config
	logCloser  io.Closer
	v          = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "cmdoverlay",
	Short: "Send prepared chat commands to a game window",
	Long: `cmdoverlay lists prepared chat commands, asks for any [Param] values a
command needs, and types the result into the target game's chat.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	RunE:               runOverlay,
}

var sendCmd = &cobra.Command{
	Use:   "send TEMPLATE",
	Short: "Fill a template from --set values and send it once",
	Args:  cobra.ExactArgs(1),
	RunE:  runSend,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the command catalog",
	RunE:  runList,
}

var sets []string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default <data dir>/config.yaml)")
	flags.String("catalog", "", "command catalog file (.json or .yaml)")
	flags.String("target", "", "process name of the window to type into")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("log-file", "", "log file (default <data dir>/overlay.log)")

	for key, flag := range map[string]string{
		config.KeyCatalog:       "catalog",
		config.KeyTargetProcess: "target",
		config.KeyLogLevel:      "log-level",
		config.KeyLogFile:       "log-file",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", flag, err)
			os.Exit(1)
		}
	}

	sendCmd.Flags().StringArrayVar(&sets, "set", nil, "param value as Name=value (repeatable)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(listCmd)
}

func setup(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(v, configFile)
	if err != nil {
		return err
	}
	logCloser, err = logger.Configure(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

// loadCatalog reads the catalog and marks stored favorites.
func loadCatalog(store *db.DB) (model.Catalog, error) {
	path := cfg.CatalogPath()
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	log := logger.For("catalog")
	log.Info("loaded catalog", "path", path, "categories", len(cat))
	for _, p := range catalog.Check(cat) {
		log.Debug("template token has no param", "problem", p.String())
	}

	if store != nil {
		starred, err := store.Favorites()
		if err != nil {
			return nil, fmt.Errorf("load favorites: %w", err)
		}
		catalog.ApplyFavorites(cat, starred)
	}
	return cat, nil
}

func newDispatcher() *inject.Dispatcher {
	return inject.New(inject.NewDesktop(), cfg.Dispatcher(), logger.For("inject"))
}

func runOverlay(_ *cobra.Command, _ []string) error {
	store, err := db.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	cat, err := loadCatalog(store)
	if err != nil {
		return err
	}

	dispatcher := newDispatcher()
	defer dispatcher.Close()

	app := ui.NewApp(cat, store, dispatcher, logger.For("ui"))
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run overlay: %w", err)
	}
	return nil
}

func runSend(_ *cobra.Command, args []string) error {
	values, err := parseSets(sets)
	if err != nil {
		return err
	}

	cmd := findCommand(args[0])
	s := wizard.Start(cmd)
	for {
		p, ok := s.Prompt()
		if !ok {
			break
		}
		value, found := values[p.Param]
		if !found {
			return fmt.Errorf("missing --set %s=...", p.Param)
		}
		if err := s.Submit(value); err != nil {
			return err
		}
	}

	text, err := s.Result()
	if err != nil {
		return err
	}

	dispatcher := newDispatcher()
	defer dispatcher.Close()

	job, err := dispatcher.Send(text)
	if err != nil {
		return fmt.Errorf("could not send command: %w", err)
	}
	job.Wait()
	if note := undelivered(job, cfg.TargetProcess); note != "" {
		fmt.Fprintln(os.Stderr, note)
		return nil
	}
	fmt.Println(text)
	return nil
}

// undelivered explains a finished job that never reached the target, or
// returns "" if it did.
func undelivered(job *inject.Job, target string) string {
	if job.Delivered() {
		return ""
	}
	if errors.Is(job.Err(), inject.ErrUnsupported) {
		return inject.ErrUnsupported.Error()
	}
	return target + " is not running"
}

// findCommand returns the catalog entry for template so its options apply,
// or a bare command with params taken from the template.
func findCommand(template string) model.Command {
	if cat, err := loadCatalog(nil); err == nil {
		for _, category := range catalog.Categories(cat) {
			for _, c := range catalog.Commands(cat, category) {
				if c.Template == template {
					return c
				}
			}
		}
	}
	return model.Command{Template: template, Params: runner.ExtractParams(template)}
}

func parseSets(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, errors.New("--set expects Name=value, got " + pair)
		}
		values[name] = value
	}
	return values, nil
}

func runList(_ *cobra.Command, _ []string) error {
	cat, err := loadCatalog(nil)
	if err != nil {
		return err
	}
	for _, category := range catalog.Categories(cat) {
		fmt.Println(category)
		for _, c := range catalog.Commands(cat, category) {
			fmt.Printf("  %-30s %s\n", c.Label, c.Template)
		}
	}
	return nil
}
