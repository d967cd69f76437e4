// README: Replays a recorded IMU CSV log through a compass session and prints the resolved headings.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"trailquest/internal/infra"
	"trailquest/internal/modules/orientation"
)

func main() {
	file := flag.String("file", "-", "IMU CSV log to replay, - for stdin")
	every := flag.Int("every", 1, "print every nth resolved heading")
	env := flag.String("env", "production", "logger mode: development or production")
	flag.Parse()

	logger, err := infra.NewLogger(*env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := io.Reader(os.Stdin)
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			logger.Fatal("opening log", zap.String("file", *file), zap.Error(err))
		}
		defer f.Close()
		in = f
	}

	if err := replay(ctx, in, os.Stdout, *every, logger); err != nil {
		logger.Error("replay failed", zap.Error(err))
		os.Exit(1)
	}
}

// replay writes "n,heading_deg" rows for each nth heading the log resolves.
func replay(ctx context.Context, in io.Reader, out io.Writer, every int, logger *zap.Logger) error {
	if every < 1 {
		every = 1
	}
	src, err := newCSVSource(in, logger)
	if err != nil {
		return err
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"n", "heading_deg"}); err != nil {
		return err
	}
	n := 0
	session := orientation.NewSession(logger)
	runErr := session.Run(ctx, src, func(heading float64) {
		n++
		if n%every == 0 {
			_ = w.Write([]string{strconv.Itoa(n), strconv.FormatFloat(heading, 'f', 2, 64)})
		}
	})
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	rows, skipped, readErr := src.stats()
	if readErr != nil {
		return fmt.Errorf("reading log: %w", readErr)
	}
	fields := []zap.Field{zap.Int("rows", rows), zap.Int("skipped", skipped), zap.Int("headings", n)}
	if h, ok := session.Heading(); ok {
		fields = append(fields, zap.Float64("final_heading_deg", h))
	}
	logger.Info("replay finished", fields...)
	return nil
}
