package cli

import (
	"context"
	"io"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/adapter"
	"github.com/m-mizutani/plenty/pkg/repository"
	"github.com/m-mizutani/plenty/pkg/usecase/combine"
	"github.com/m-mizutani/plenty/pkg/utils/logging"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel string
	logFile  string

	// Repository
	store             string
	postgresDSN       string
	postgresTable     string
	sqlitePath        string
	firestoreProject  string
	firestoreDatabase string
	redisAddr         string
	redisPassword     string
	redisDB           int64

	// Generator
	llm             string
	geminiProject   string
	geminiLocation  string
	geminiModel     string
	anthropicAPIKey string
	claudeModel     string

	// Combination
	promptFile        string
	policyDir         string
	generationTimeout time.Duration
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Aliases:     []string{"l"},
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("PLENTY_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "Also write JSON logs to this file",
			Sources:     cli.EnvVars("PLENTY_LOG_FILE"),
			Destination: &cfg.logFile,
		},
	}
}

// storeFlags returns flags selecting and configuring the combination store
func storeFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Combination store (memory, postgres, sqlite, firestore, redis)",
			Value:       "memory",
			Sources:     cli.EnvVars("PLENTY_STORE"),
			Destination: &cfg.store,
		},
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "PostgreSQL connection string",
			Sources:     cli.EnvVars("PLENTY_POSTGRES_DSN", "DATABASE_URL"),
			Destination: &cfg.postgresDSN,
		},
		&cli.StringFlag{
			Name:        "postgres-table",
			Usage:       "PostgreSQL table name, case-sensitive (use \"Elements\" for tables created by the Node.js server)",
			Value:       "elements",
			Sources:     cli.EnvVars("PLENTY_POSTGRES_TABLE"),
			Destination: &cfg.postgresTable,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file",
			Value:       "plenty.db",
			Sources:     cli.EnvVars("PLENTY_SQLITE_PATH"),
			Destination: &cfg.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for Firestore",
			Sources:     cli.EnvVars("PLENTY_FIRESTORE_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("PLENTY_FIRESTORE_DATABASE"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address (host:port)",
			Value:       "localhost:6379",
			Sources:     cli.EnvVars("PLENTY_REDIS_ADDR"),
			Destination: &cfg.redisAddr,
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Sources:     cli.EnvVars("PLENTY_REDIS_PASSWORD"),
			Destination: &cfg.redisPassword,
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Sources:     cli.EnvVars("PLENTY_REDIS_DB"),
			Destination: &cfg.redisDB,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm",
			Usage:       "Generative model provider (gemini, claude)",
			Value:       "gemini",
			Sources:     cli.EnvVars("PLENTY_LLM"),
			Destination: &cfg.llm,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("PLENTY_GEMINI_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("PLENTY_GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name",
			Sources:     cli.EnvVars("PLENTY_GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "claude-model",
			Usage:       "Claude model name",
			Sources:     cli.EnvVars("PLENTY_CLAUDE_MODEL"),
			Destination: &cfg.claudeModel,
		},
	}
}

// combineFlags returns flags controlling how pairs are combined
func combineFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "prompt-file",
			Usage:       "System instruction file (default: built-in prompt)",
			Sources:     cli.EnvVars("PLENTY_PROMPT_FILE"),
			Destination: &cfg.promptFile,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego policies in package combine",
			Sources:     cli.EnvVars("PLENTY_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.DurationFlag{
			Name:        "generation-timeout",
			Usage:       "Timeout of a single generation request",
			Value:       30 * time.Second,
			Sources:     cli.EnvVars("PLENTY_GENERATION_TIMEOUT"),
			Destination: &cfg.generationTimeout,
		},
	}
}

// setupLogger installs the configured logger as default and into ctx.
// The returned function closes the log file, if any.
func (cfg *config) setupLogger(ctx context.Context, w io.Writer) (context.Context, func() error, error) {
	logger, closer, err := logging.NewWithFile(cfg.logLevel, w, cfg.logFile)
	if err != nil {
		return nil, nil, err
	}
	logging.SetDefault(logger)
	return logging.With(ctx, logger), closer, nil
}

// newRepository creates the combination store selected by --store
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	switch cfg.store {
	case "", "memory":
		logging.From(ctx).Warn("using in-memory store, combinations are lost on exit")
		return repository.NewMemory(), nil

	case "postgres":
		repo, err := repository.NewPostgres(ctx, cfg.postgresDSN, repository.WithTable(cfg.postgresTable))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create postgres repository")
		}
		return repo, nil

	case "sqlite":
		repo, err := repository.NewSQLite(ctx, cfg.sqlitePath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create sqlite repository")
		}
		return repo, nil

	case "firestore":
		if cfg.firestoreProject == "" {
			return nil, goerr.New("firestore-project is required")
		}
		repo, err := repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create firestore repository")
		}
		return repo, nil

	case "redis":
		repo, err := repository.NewRedis(ctx, &redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       int(cfg.redisDB),
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create redis repository")
		}
		return repo, nil

	default:
		return nil, goerr.New("unknown store",
			goerr.V("store", cfg.store),
			goerr.V("supported", []string{"memory", "postgres", "sqlite", "firestore", "redis"}))
	}
}

// newGenerator creates the generator selected by --llm
func (cfg *config) newGenerator(ctx context.Context) (combine.Generator, error) {
	prompt, err := combine.LoadPrompt(cfg.promptFile)
	if err != nil {
		return nil, err
	}

	switch cfg.llm {
	case "", "gemini":
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project is required")
		}
		if cfg.geminiLocation == "" {
			return nil, goerr.New("gemini-location is required")
		}
		gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
			adapter.WithGenerativeModel(cfg.geminiModel))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create gemini client")
		}
		return combine.NewGeminiGenerator(gemini, prompt)

	case "claude":
		if cfg.anthropicAPIKey == "" {
			return nil, goerr.New("anthropic-api-key is required")
		}
		claude := adapter.NewClaude(cfg.anthropicAPIKey, adapter.WithClaudeModel(cfg.claudeModel))
		return combine.NewClaudeGenerator(claude, prompt), nil

	default:
		return nil, goerr.New("unknown llm",
			goerr.V("llm", cfg.llm),
			goerr.V("supported", []string{"gemini", "claude"}))
	}
}

// newUseCase wires the store, generator and policy together. Close the
// returned repository when done.
func (cfg *config) newUseCase(ctx context.Context) (*combine.UseCase, repository.Repository, error) {
	generator, err := cfg.newGenerator(ctx)
	if err != nil {
		return nil, nil, err
	}

	policy, err := combine.LoadPolicy(ctx, cfg.policyDir)
	if err != nil {
		return nil, nil, err
	}

	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}

	uc := combine.New(repo, generator,
		combine.WithPolicy(policy),
		combine.WithGenerationTimeout(cfg.generationTimeout),
	)
	return uc, repo, nil
}
