// Command nutriscan is a terminal client for the analysis API.
//
//	nutriscan scan -file PATH [-product NAME] [-user ID]
//	nutriscan capture [-facing rear|front] [-product NAME] [-user ID]
//	nutriscan health [-grpc ADDR]
//	nutriscan profile
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/example/nutriscan/internal/acquisition"
	"github.com/example/nutriscan/internal/apiclient"
	"github.com/example/nutriscan/internal/camera"
	"github.com/example/nutriscan/internal/config"
	"github.com/example/nutriscan/internal/healthcheck"
	"github.com/example/nutriscan/internal/logging"
	"github.com/example/nutriscan/internal/models"
	"github.com/example/nutriscan/internal/profile"
	"github.com/example/nutriscan/internal/usecase"
	"github.com/example/nutriscan/internal/verdict"
)

const usage = `usage: nutriscan <command> [flags]

commands:
  scan     analyze an image file
  capture  analyze a frame from the configured camera
  health   check the analysis API
  profile  show the stored profile
`

var (
	errUsage = errors.New("invalid usage")
	// errReported marks failures already written to stdout.
	errReported = errors.New("reported")
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := zap.NewNop()
	if cfg.Debug {
		if logger, err = logging.NewLogger(true); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, logger, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	_ = logger.Sync()
	os.Exit(code)
}

type cli struct {
	cfg    *config.Config
	client *apiclient.Client
	logger *zap.Logger
	stdout io.Writer
}

// run executes one command and returns the process exit code: 0 on success,
// 1 when the command ran but failed, 2 on bad usage.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	c := &cli{
		cfg:    cfg,
		client: apiclient.New(cfg.APIBaseURL, cfg.APITimeout),
		logger: logger,
		stdout: stdout,
	}

	var err error
	switch args[0] {
	case "scan":
		err = c.scan(ctx, args[1:], stderr)
	case "capture":
		err = c.capture(ctx, args[1:], stderr)
	case "health":
		err = c.health(ctx, args[1:], stderr)
	case "profile":
		err = c.profile(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	case errors.Is(err, errReported):
		return 1
	default:
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func (c *cli) scan(ctx context.Context, args []string, stderr io.Writer) error {
	fs := newFlagSet("scan", stderr)
	file := fs.String("file", "", "image file (.jpg, .jpeg, .png)")
	product := fs.String("product", "", "optional product name")
	user := fs.String("user", "", "optional user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fmt.Fprintln(stderr, "scan: -file is required")
		return errUsage
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}
	upload := &acquisition.Upload{
		Filename:    filepath.Base(*file),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}

	var captured *acquisition.Image
	uploader := acquisition.NewUploader(c.cfg.MaxUploadBytes)
	if _, err := uploader.Accept(upload, func(img acquisition.Image) { captured = &img }); err != nil {
		return err
	}
	return c.submit(ctx, *captured, *product, *user)
}

func (c *cli) capture(ctx context.Context, args []string, stderr io.Writer) error {
	fs := newFlagSet("capture", stderr)
	facing := fs.String("facing", "rear", "rear or front")
	product := fs.String("product", "", "optional product name")
	user := fs.String("user", "", "optional user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := camera.ParseFacing(*facing)
	if err != nil {
		fmt.Fprintln(stderr, "capture:", err)
		return errUsage
	}

	if !c.cfg.CameraEnabled() {
		return errors.New("no camera configured (set CAMERA_REAR_URL or CAMERA_FRONT_URL)")
	}
	device := camera.NewSnapshotDevice(c.cfg.CameraRearURL, c.cfg.CameraFrontURL, c.cfg.APITimeout)

	ctrl := camera.NewController(device, c.logger)
	defer ctrl.Release()
	ctrl.SetFacing(f)
	if err := ctrl.Start(ctx); err != nil {
		return errors.New(camera.AccessErrorMessage)
	}

	var captured *acquisition.Image
	if err := ctrl.Capture(ctx, func(img acquisition.Image) { captured = &img }); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	ctrl.Release()
	return c.submit(ctx, *captured, *product, *user)
}

func (c *cli) submit(ctx context.Context, img acquisition.Image, productName, userID string) error {
	result, err := c.client.SubmitScan(ctx, img, productName, userID)
	if err != nil {
		msg, ok := apiclient.ErrorMessage(err)
		if !ok {
			msg = usecase.FallbackScanError
		}
		c.logger.Debug("scan failed", zap.Error(err))
		failed := models.FailedResult(msg)
		result = &failed
	}

	view := verdict.Present(result)
	if err := verdict.WriteText(c.stdout, view); err != nil {
		return err
	}
	if view.Failed {
		return errReported
	}
	return nil
}

func (c *cli) health(ctx context.Context, args []string, stderr io.Writer) error {
	fs := newFlagSet("health", stderr)
	grpcAddr := fs.String("grpc", "", "query a nutriscan gRPC health endpoint instead of the API")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *grpcAddr != "" {
		probe, conn, err := healthcheck.DialProbe(*grpcAddr, c.logger)
		if err != nil {
			return err
		}
		defer conn.Close()

		status, err := probe.Status(ctx, healthcheck.ServiceName)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "%s: %s\n", healthcheck.ServiceName, status)
		if status != healthpb.HealthCheckResponse_SERVING {
			return errors.New("analysis API is not serving")
		}
		return nil
	}

	status, err := c.client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "status: %s\n", status.Status)
	if status.Version != "" {
		fmt.Fprintf(c.stdout, "version: %s\n", status.Version)
	}
	return nil
}

func (c *cli) profile(ctx context.Context) error {
	p, ok := profile.NewStore(c.client, c.logger).Load(ctx)
	if !ok {
		return errors.New("no profile available")
	}
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
