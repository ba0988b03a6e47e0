package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arthur-debert/nanomodel/nanomodel"
	"github.com/arthur-debert/nanomodel/nanomodel/manager"
	"github.com/arthur-debert/nanomodel/nanomodel/storage"
	"github.com/arthur-debert/nanomodel/nanomodel/storage/mongo"
	"github.com/arthur-debert/nanomodel/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CLI wires the configuration, the schema registry and the manager behind
// the cobra commands. Backends and loggers are opened per invocation.
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
	out       io.Writer

	cfg      Config
	logger   *zap.Logger
	registry *nanomodel.Registry
	backend  storage.Backend
	manager  *manager.Manager
}

// NewCLI creates the command tree writing results to out.
func NewCLI(out io.Writer) *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		out:       out,
		logger:    zap.NewNop(),
	}
	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()
	return cli
}

// setupViperConfig configures config file discovery and NANOMODEL_* env.
func (cli *CLI) setupViperConfig() {
	if configFile := os.Getenv("NANOMODEL_CONFIG"); configFile != "" {
		cli.viperInst.SetConfigFile(configFile)
	} else {
		cli.viperInst.SetConfigName("nanomodel")
		cli.viperInst.SetConfigType("yaml")
		cli.viperInst.AddConfigPath(".")
		cli.viperInst.AddConfigPath("$HOME/.nanomodel")
	}
	cli.viperInst.SetEnvPrefix("NANOMODEL")
	cli.viperInst.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	cli.viperInst.AutomaticEnv()
	setDefaults(cli.viperInst)
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "nanomodel",
		Short: "Read and write schema-defined documents",
		Long: `nanomodel stores documents of the model types defined in a YAML schema.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (NANOMODEL_*, e.g. NANOMODEL_MONGO_URI)
3. Configuration file (NANOMODEL_CONFIG, ./nanomodel.yaml, ~/.nanomodel/nanomodel.yaml)

Examples:
  nanomodel --schema models.yaml create User name=Ada age=36
  nanomodel --schema models.yaml get User users/0c6f...
  nanomodel --schema models.yaml update User users/0c6f... address.city=London`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cli.setup,
	}

	flags := cli.rootCmd.PersistentFlags()
	flags.StringP("schema", "s", "", "Model schema file (YAML)")
	flags.StringP("backend", "b", "json", "Storage backend (json|memory|mongo)")
	flags.StringP("db", "d", "nanomodel.json", "JSON backend data file")
	flags.StringP("format", "f", "json", "Output format (json|yaml)")
	flags.Duration("timeout", 0, "Operation timeout")
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.String("log-file", "", "Also write JSON logs to this rotated file")
	flags.String("mongo-uri", "", "MongoDB connection URI")
	flags.String("mongo-database", "nanomodel", "MongoDB database")

	bindings := map[string]string{
		"schema":         "schema",
		"backend":        "backend",
		"db":             "db",
		"format":         "format",
		"timeout":        "timeout",
		"log.level":      "log-level",
		"log.file":       "log-file",
		"mongo.uri":      "mongo-uri",
		"mongo.database": "mongo-database",
	}
	for key, flag := range bindings {
		_ = cli.viperInst.BindPFlag(key, flags.Lookup(flag))
	}
}

// setup resolves the configuration and opens the backend. Commands that do
// not touch storage skip the backend.
func (cli *CLI) setup(cmd *cobra.Command, args []string) error {
	if err := cli.viperInst.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	cfg, err := loadConfig(cli.viperInst)
	if err != nil {
		return err
	}
	cli.cfg = cfg
	cli.logger = newLogger(cfg.Log)
	nanomodel.SetLogger(cli.logger)

	if cfg.Schema == "" {
		return errors.New("a schema file is required (--schema or NANOMODEL_SCHEMA)")
	}
	cli.registry, err = schema.LoadFile(cfg.Schema)
	if err != nil {
		return err
	}
	if cmd.Annotations["storage"] != "true" {
		return nil
	}

	cli.backend, err = cli.openBackend(cmd.Context())
	if err != nil {
		return err
	}
	cli.manager = manager.New(cli.backend, manager.WithLogger(cli.logger.Named("manager")))
	cli.registry.SetManager(cli.manager)
	return nil
}

func (cli *CLI) openBackend(ctx context.Context) (storage.Backend, error) {
	switch cli.cfg.Backend {
	case "memory":
		return storage.NewMemory(), nil
	case "mongo":
		client, err := mongo.Open(ctx, cli.cfg.Mongo, cli.logger)
		if err != nil {
			return nil, fmt.Errorf("opening mongodb: %w", err)
		}
		db := client.Database(cli.cfg.Mongo.Database)
		return mongo.New(db, mongo.WithClient(client), mongo.WithLogger(cli.logger.Named("mongo"))), nil
	default:
		return storage.NewJSON(cli.cfg.DB, storage.WithJSONLogger(cli.logger.Named("storage")))
	}
}

func (cli *CLI) teardown() error {
	defer func() { _ = cli.logger.Sync() }()
	if cli.backend == nil {
		return nil
	}
	err := cli.backend.Close()
	cli.backend = nil
	return err
}

// context applies the configured timeout.
func (cli *CLI) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cli.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, cli.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (cli *CLI) lookup(name string) (*nanomodel.Meta, error) {
	meta, ok := cli.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown model %q (known: %s)", name, strings.Join(cli.registry.Names(), ", "))
	}
	return meta, nil
}

func (cli *CLI) print(m *nanomodel.Model) error {
	doc, err := m.ToDict()
	if err != nil {
		return err
	}
	return render(cli.out, cli.cfg.Format, doc)
}

// Execute runs the command tree and closes the backend it opened.
func (cli *CLI) Execute(ctx context.Context) error {
	err := cli.rootCmd.ExecuteContext(ctx)
	if cerr := cli.teardown(); err == nil {
		err = cerr
	}
	return err
}
