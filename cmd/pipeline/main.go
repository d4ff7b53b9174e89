package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"opensud/config"
	"opensud/pipeline"
	"opensud/utils"
)

func main() {
	// reading configuration shall be the very first action because it also configures the logger
	conf := config.GetConfig()
	log := &utils.Logger
	log.Debug("Starting the pipeline", zap.String("warehouse", conf.Warehouse), zap.String("data_dir", conf.DataDir))

	err := pipeline.NewRunner(conf).Run(context.Background())
	if err != nil {
		log.Error("Pipeline failed", zap.Error(err))
	}
	log.Flush()
	os.Exit(pipeline.ExitCode(err))
}
