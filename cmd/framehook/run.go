package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/framehook"
	"github.com/vango-dev/framehook/internal/config"
	"github.com/vango-dev/framehook/internal/errors"
	"github.com/vango-dev/framehook/pkg/recorder"
)

// uploadTimeout bounds the trace upload on exit.
const uploadTimeout = 30 * time.Second

type runOptions struct {
	configDir string
	fps       int
	consumers int
	duration  time.Duration
	addr      string
	s3Bucket  string
	logFormat string
	logLevel  string
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run demo consumers on a real-time frame loop",
		Long: `Run attaches demo consumers to a frame registry driven by a ticker.

Half of the consumers count frames, the other half track floor(frames/2)
so their listeners fire every other frame. On exit a summary is printed
and, when a bucket is configured, the frame timeline is uploaded to S3.

Examples:
  framehook run --duration=5s
  framehook run --fps=120 --consumers=10 --addr=127.0.0.1:9090
  framehook run --config=./examples --s3-bucket=frame-traces`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.configDir, "config", "c", ".", "Directory containing framehook.yaml or framehook.json")
	cmd.Flags().IntVar(&opts.fps, "fps", 0, "Frame rate (default from config)")
	cmd.Flags().IntVarP(&opts.consumers, "consumers", "n", 2, "Number of demo consumers")
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "Stop after this long (default: until interrupted)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Serve the debug server on this address")
	cmd.Flags().StringVar(&opts.s3Bucket, "s3-bucket", "", "Upload the frame timeline to this bucket on exit")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	return cmd
}

func run(ctx context.Context, opts runOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.consumers < 0 {
		return errors.New("FH180").WithDetailf("--consumers is %d", opts.consumers)
	}

	logger, err := newLogger(os.Stderr, opts.logFormat, opts.logLevel)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configDir)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)

	rtCfg, err := cfg.ToRuntime()
	if err != nil {
		return err
	}
	rtCfg.Logger = logger

	rt, err := framehook.New(rtCfg)
	if err != nil {
		return errors.New("FH102").Wrap(err)
	}
	defer rt.Close()

	d, err := attachDemo(rt.Registry(), opts.consumers, logger)
	if err != nil {
		return err
	}
	defer d.Close()
	logger.Info("frame loop running", "fps", rtCfg.FPS, "consumers", opts.consumers)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.Enabled {
		srv := rt.DebugServer()
		addr := cfg.Server.Addr
		g.Go(func() error {
			if err := srv.Serve(gctx, addr); err != nil {
				return errors.New("FH140").WithDetailf("listening on %s", addr).Wrap(err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	runErr := g.Wait()

	d.Close()
	tl := rt.Recorder().Timeline()
	printSummary(out, rt.Registry().Frames(), tl, d)

	if cfg.UploadEnabled() {
		uctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()
		key, err := uploadTrace(uctx, cfg.Trace.S3, tl)
		if err != nil {
			return err
		}
		logger.Info("trace uploaded", "bucket", cfg.Trace.S3.Bucket, "key", key)
		success(out, "Uploaded trace to s3://%s/%s", cfg.Trace.S3.Bucket, key)
	}
	return runErr
}

// applyOverrides copies non-zero flags onto the file configuration.
func applyOverrides(cfg *config.Config, opts runOptions) {
	if opts.fps > 0 {
		cfg.Loop.FPS = opts.fps
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
		cfg.Server.Enabled = true
	}
	if opts.s3Bucket != "" {
		cfg.Trace.S3.Bucket = opts.s3Bucket
	}
}

func printSummary(w io.Writer, frames uint64, tl recorder.Timeline, d *demo) {
	fmt.Fprintf(w, "\n  Frames:         %d\n", frames)
	fmt.Fprintf(w, "  Slow frames:    %d (over %.2fms)\n", tl.DroppedFrames, tl.ThresholdMs)
	fmt.Fprintf(w, "  Recorded:       %d\n\n", len(tl.Samples))

	if len(d.consumers) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  CONSUMER\tNOTIFICATIONS\tLAST")
	for _, dc := range d.consumers {
		fmt.Fprintf(tw, "  %s\t%d\t%d\n", dc.name, dc.notifications.Load(), dc.last.Load())
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func uploadTrace(ctx context.Context, s3cfg config.S3Config, tl recorder.Timeline) (string, error) {
	client, err := recorder.NewS3Client(s3cfg.Region, s3cfg.Endpoint)
	if err != nil {
		return "", errors.New("FH161").
			WithSuggestion("Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY").
			Wrap(err)
	}
	key, err := recorder.NewS3Uploader(client, s3cfg.Bucket, s3cfg.Prefix).Upload(ctx, tl)
	if err != nil {
		return "", errors.New("FH160").WithDetailf("bucket %s", s3cfg.Bucket).Wrap(err)
	}
	return key, nil
}
