// Package pipeline runs the download and load steps in order and maps the outcome to an exit code.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"opensud/config"
	"opensud/source"
	"opensud/target"
	"opensud/utils"
)

// ErrMissingFile is returned when the load step has no local file to load.
var ErrMissingFile = errors.New("file not found")

// Runner executes one pipeline run for a single dataset.
type Runner struct {
	Config     *config.Config
	Descriptor source.DatasetDescriptor
	Downloader *source.Downloader

	// OpenWarehouse is called only when a load is about to start.
	OpenWarehouse func(ctx context.Context) (target.Warehouse, error)

	Confirmer Confirmer

	// Logger defaults to the shared program logger
	Logger *utils.CustomLogger
}

// NewRunner wires the runner for the Medicaid Provider Spending dataset from the configuration.
func NewRunner(conf *config.Config) *Runner {
	downloader := source.NewDownloader(source.FetcherOptions{
		Timeout:      conf.Timeout,
		AWSRegion:    conf.AWSRegion,
		AWSAccessKey: conf.AWSAccessKey,
		AWSSecretKey: conf.AWSSecretKey,
	})
	downloader.ChunkSize = conf.ChunkSize
	return &Runner{
		Config:     conf,
		Descriptor: source.MedicaidProviderSpending,
		Downloader: downloader,
		OpenWarehouse: func(ctx context.Context) (target.Warehouse, error) {
			return target.Open(ctx, conf)
		},
		Confirmer: NewTerminalConfirmer(),
	}
}

func (r *Runner) logger() *utils.CustomLogger {
	if r.Logger != nil {
		return r.Logger
	}
	return &utils.Logger
}

// Run downloads the file unless it is a load-only run, then loads it unless it is a download-only run.
func (r *Runner) Run(ctx context.Context) error {
	conf := r.Config
	if conf.DownloadOnly && conf.LoadOnly {
		return fmt.Errorf("%w: --download-only and --load-only cannot be used together", config.ErrInvalidConfig)
	}
	logger := r.logger()
	start := time.Now()
	path := r.Descriptor.LocalPath(conf.DataDir)

	if !conf.LoadOnly {
		if err := r.fetch(ctx, path); err != nil {
			return err
		}
	}

	if conf.DownloadOnly {
		logger.Info("Done (download only)", zap.String("file", path), zap.Duration("time", time.Since(start)))
		return nil
	}

	file, exists, err := source.Stat(path)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s, run without --load-only to download first", ErrMissingFile, path)
	}

	if err := r.load(ctx, file); err != nil {
		return err
	}
	logger.Info("Done", zap.Duration("time", time.Since(start)))
	return nil
}

// fetch downloads the file, or applies the re-download policy when the file is already there.
func (r *Runner) fetch(ctx context.Context, path string) error {
	logger := r.logger()
	file, exists, err := source.Stat(path)
	if err != nil {
		return err
	}
	if exists {
		redownload, err := r.shouldRedownload(file)
		if err != nil {
			return err
		}
		if !redownload {
			return r.verifyExisting(file)
		}
	}

	result, err := r.Downloader.Download(ctx, r.Descriptor, path)
	if err != nil {
		return err
	}
	logger.Info("Download complete", zap.String("file", result.Path), zap.Int64("bytes", result.Size))
	return nil
}

func (r *Runner) shouldRedownload(file source.FileInfo) (bool, error) {
	logger := r.logger()
	switch r.Config.Redownload {
	case config.RedownloadYes:
		logger.Info("File exists, downloading it again", zap.String("file", file.LocalPath))
		return true, nil
	case config.RedownloadNo:
		logger.Info("File exists, keeping it", zap.String("file", file.LocalPath))
		return false, nil
	}

	if r.Confirmer == nil || !r.Confirmer.Interactive() {
		logger.Info("File exists and no terminal to ask, keeping it (use --redownload=yes to replace it)",
			zap.String("file", file.LocalPath))
		return false, nil
	}
	answer, err := r.Confirmer.Confirm(
		fmt.Sprintf("File exists: %s (%d bytes). Re-download?", file.LocalPath, file.Size), false)
	if err != nil {
		return false, fmt.Errorf("re-download prompt failed: %w", err)
	}
	return answer, nil
}

// verifyExisting re-hashes a kept file, a mismatch is reported but never stops the run.
func (r *Runner) verifyExisting(file source.FileInfo) error {
	actual, err := source.HashFile(file.LocalPath)
	if err != nil {
		return err
	}
	source.VerifyChecksum(r.logger(), r.Descriptor, actual)
	return nil
}

func (r *Runner) load(ctx context.Context, file source.FileInfo) (err error) {
	warehouse, err := r.OpenWarehouse(ctx)
	if err != nil {
		return err
	}
	defer func(warehouse target.Warehouse) {
		if closeErr := warehouse.Close(); closeErr != nil {
			r.logger().Warn("Failed to close the warehouse connection", zap.Error(closeErr))
		}
	}(warehouse)

	_, err = target.NewLoader(warehouse).Load(ctx, file, target.FromConfig(r.Config))
	return err
}

// ExitCode maps the result of Run to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, config.ErrInvalidConfig):
		return 2
	default:
		return 1
	}
}
