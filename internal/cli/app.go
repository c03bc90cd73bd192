package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite"

	"github.com/gpgcloud/gpgcloud/internal/backend"
	"github.com/gpgcloud/gpgcloud/internal/backend/s3x"
	"github.com/gpgcloud/gpgcloud/internal/backend/sftpx"
	"github.com/gpgcloud/gpgcloud/internal/config"
	"github.com/gpgcloud/gpgcloud/internal/engine"
	"github.com/gpgcloud/gpgcloud/internal/logging"
	"github.com/gpgcloud/gpgcloud/internal/repositories/objects"
)

// App wires configuration, the metadata store and the configured backends
// behind the gpgcloud subcommands.
type App struct {
	config   *config.Config
	log      logging.Logger
	repo     objects.Repository
	backends map[string]backend.Backend
	out      io.Writer
	closers  []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	a := &App{
		config:   c,
		log:      logging.NewTextLogger(os.Stderr, parseLevel(c.LogLevel)),
		backends: make(map[string]backend.Backend),
		out:      os.Stdout,
	}

	if err := a.initRepository(ctx); err != nil {
		return nil, err
	}
	if err := a.initBackends(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.MetadataDriver {
	case "bolt":
		r, err := objects.OpenBolt(a.config.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("opening metadata store: %w", err)
		}
		a.repo = r
		a.closers = append(a.closers, r.Close)
	case "sqlite", "":
		db, err := objects.Open(ctx, a.config.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("opening metadata store: %w", err)
		}
		a.repo = objects.NewSQLiteRepository(db)
		a.closers = append(a.closers, db.Close)
	default:
		return fmt.Errorf("unknown metadata driver %q", a.config.MetadataDriver)
	}
	return nil
}

func (a *App) initBackends(ctx context.Context) error {
	if a.config.LocalDir != "" {
		l, err := backend.NewLocal(a.config.LocalDir)
		if err != nil {
			return fmt.Errorf("local backend: %w", err)
		}
		a.backends["local"] = l
	}

	if a.config.S3Bucket != "" {
		s3b, err := s3x.New(ctx, s3x.Options{
			Region:          a.config.S3Region,
			Bucket:          a.config.S3Bucket,
			Prefix:          a.config.S3Prefix,
			AccessKey:       a.config.S3AccessKey,
			SecretAccessKey: a.config.S3SecretAccessKey,
			BaseEndpoint:    a.config.S3BaseEndpoint,
		})
		if err != nil {
			return fmt.Errorf("s3 backend: %w", err)
		}
		a.backends["s3"] = s3b
	}

	if a.config.SFTPHost != "" {
		sb, err := sftpx.Dial(sftpx.Options{
			Host:         a.config.SFTPHost,
			Port:         a.config.SFTPPort,
			Username:     a.config.SFTPUser,
			IdentityFile: a.config.SFTPIdentityFile,
			RemoteDir:    a.config.SFTPRemoteDir,
		})
		if err != nil {
			return fmt.Errorf("sftp backend: %w", err)
		}
		a.backends["sftp"] = sb
		a.closers = append(a.closers, sb.Close)
	}

	if len(a.backends) == 0 {
		return fmt.Errorf("no backends configured")
	}
	return nil
}

func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (a *App) backoff() retry.Backoff {
	b := retry.NewExponential(a.config.RetryBaseDelay)
	b = retry.WithCappedDuration(a.config.RetryMaxDelay, b)
	return retry.WithMaxRetries(uint64(a.config.RetryMaxAttempts), b)
}

// newEngine builds the sync engine. needPrivate prompts for the keyring
// passphrase; encrypt-only commands skip it.
func (a *App) newEngine(needPrivate bool) (*engine.Engine, error) {
	cipher, err := a.buildCipher(needPrivate)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Options{
		Repo:        a.repo,
		Backends:    a.backends,
		Cipher:      cipher,
		Suite:       a.suiteID(),
		Compress:    a.config.Compress,
		Backoff:     a.backoff,
		CallTimeout: a.config.CallTimeout,
		Logger:      a.log,
	})
}

// Run dispatches a subcommand. It returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		a.usage()
		return 2
	}

	cmd, rest := args[0], args[1:]

	var err error
	switch cmd {
	case "backup":
		err = a.backup(ctx, rest)
	case "restore":
		err = a.restore(ctx, rest)
	case "list":
		err = a.list(ctx, rest)
	case "remove":
		err = a.remove(ctx, rest)
	case "reconcile":
		err = a.reconcile(ctx, rest)
	case "help":
		a.usage()
	default:
		fmt.Fprintf(a.out, "Unknown command: %s\n", cmd)
		a.usage()
		return 2
	}

	if err != nil {
		a.log.Error(ctx, "command failed", "command", cmd, "error", err)
		return 1
	}
	return 0
}

func (a *App) usage() {
	fmt.Fprintln(a.out, `Usage: gpgcloud [flags] <command> [args]

Commands:
  backup <path> [logical-id]    encrypt a file, or every file under a
                                directory, and upload it
  restore <logical-id> [dest]   download and decrypt an object
  list                          show tracked objects
  remove <logical-id>           tombstone an object and delete its remote copy
  reconcile [backend]           diff local records against the remote listing
  help                          show this message

Flags:
  -c, -config  path to a JSON config file
  -d           metadata database path
  -b           backend to use
  -r           recipient key id or identity
  -l           log level (debug, info, warn, error)`)
}

func (a *App) backendID(override string) string {
	if override != "" {
		return override
	}
	return a.config.DefaultBackend
}
