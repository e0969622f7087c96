package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/scanai/internal/history"
	"github.com/zombor/scanai/internal/logging"
	"github.com/zombor/scanai/internal/mqttclient"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	fs := ff.NewFlagSet("scanai")
	var (
		server      = fs.StringLong("server", defaultServer, "Analysis service base URL")
		timeout     = fs.DurationLong("timeout", 0, "Request timeout for probe and upload (0 uses transport defaults)")
		camera      = fs.StringLong("camera", "", "Capture source: snapshot URL, image file, or dir:<path>")
		jpegQuality = fs.IntLong("jpeg-quality", 90, "JPEG quality for re-encoded frames")
		user        = fs.StringLong("user", "", "Basic auth username for uploads (optional)")
		pass        = fs.StringLong("pass", "", "Basic auth password for uploads (optional)")
		dbPath      = fs.StringLong("db", "scanai.db", "History database path (empty disables history)")
		archive     = fs.StringLong("archive", archiveNone, "Capture archive: 'local', 'minio' or 'none'")
		archiveDir  = fs.StringLong("archive-dir", "./captures", "Directory for the local archive")
		minioHost   = fs.StringLong("minio-endpoint", "localhost:9000", "MinIO endpoint")
		minioKey    = fs.StringLong("minio-access-key", "", "MinIO access key")
		minioSecret = fs.StringLong("minio-secret-key", "", "MinIO secret key")
		minioBucket = fs.StringLong("minio-bucket", "scanai-captures", "MinIO bucket")
		minioSSL    = fs.BoolLong("minio-ssl", "Use TLS for MinIO")
		minioPublic = fs.StringLong("minio-public-url", "", "Public base URL for archived objects (optional)")
		mqttHost    = fs.StringLong("mqtt-host", "", "MQTT broker host (empty disables publishing)")
		mqttPort    = fs.IntLong("mqtt-port", 1883, "MQTT broker port")
		mqttUser    = fs.StringLong("mqtt-user", "", "MQTT username (optional)")
		mqttPass    = fs.StringLong("mqtt-pass", "", "MQTT password (optional)")
		mqttTopic   = fs.StringLong("mqtt-topic", "scanai", "MQTT base topic")
		limit       = fs.IntLong("limit", 20, "Entries shown by the history command")
		logLevel    = fs.StringLong("log-level", "warn", "Log level: debug, info, warn or error")
		logFormat   = fs.StringLong("log-format", "text", "Log format: text or json")
		_           = fs.StringLong("config", "", "Config file path (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SCANAI"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logger, err := logging.New(os.Stderr, logging.Options{Level: *logLevel, Format: *logFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	cfg := config{
		server:      *server,
		timeout:     *timeout,
		camera:      *camera,
		jpegQuality: *jpegQuality,
		user:        *user,
		pass:        *pass,
		dbPath:      *dbPath,
		archive:     *archive,
		archiveDir:  *archiveDir,
		minio: history.MinioConfig{
			Endpoint:      *minioHost,
			AccessKey:     *minioKey,
			SecretKey:     *minioSecret,
			Bucket:        *minioBucket,
			UseSSL:        *minioSSL,
			PublicBaseURL: *minioPublic,
		},
		mqtt: mqttclient.Config{
			Host:     *mqttHost,
			Port:     *mqttPort,
			Username: *mqttUser,
			Password: *mqttPass,
		},
		mqttTopic: *mqttTopic,
		limit:     *limit,
	}

	command := "run"
	if args := fs.GetArgs(); len(args) > 0 {
		command = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := dispatch(ctx, command, cfg)
	stop()
	os.Exit(code)
}

func dispatch(ctx context.Context, command string, cfg config) int {
	var err error
	switch command {
	case "run":
		err = runInteractive(ctx, cfg)
	case "once":
		err = runOnce(ctx, cfg)
	case "probe":
		err = runProbe(ctx, cfg)
	case "history":
		err = runHistory(cfg)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q (want run, once, probe or history)\n", command)
		return 2
	}
	if err != nil {
		slog.Error("Command failed", "command", command, "error", err)
		return 1
	}
	return 0
}
