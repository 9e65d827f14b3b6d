package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wgdzlh/aquaprep"
	"github.com/wgdzlh/aquaprep/gdalio"
	"github.com/wgdzlh/aquaprep/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg        aquaprep.Config
	configFile string
	logLevel   string
	logJSON    bool
	startTime  time.Time

	sourceRoot string
	targetRoot string
	chipSize   int
	workers    int

	annotations string
	preppedRoot string
)

var rootCmd = &cobra.Command{
	Use:   "aquaprep",
	Short: "prepare satellite imagery chips and class masks for aquaculture detection",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		startTime = time.Now()
		if cfg, err = aquaprep.LoadConfig(configFile); err != nil {
			return
		}
		flags := cmd.Flags()
		if flags.Changed("log-level") || cfg.LogLevel == "" {
			cfg.LogLevel = logLevel
		}
		if flags.Changed("log-json") {
			cfg.LogJSON = logJSON
		}
		if flags.Changed("chip-size") {
			cfg.ChipSize = chipSize
		}
		if flags.Changed("workers") {
			cfg.Workers = workers
		}
		if err = cfg.Validate(); err != nil {
			return
		}
		return log.Init(cfg.LogLevel, cfg.LogJSON)
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		log.Info(fmt.Sprintf("command %s took %.1fs", cmd.Name(), time.Since(startTime).Seconds()))
		log.Sync()
	},
}

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "chip unprocessed SR scenes of all orders into 4-band tifs and RGB pngs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := aquaprep.NewChipper(gdalio.NewGdalToolbox(), cfg)
		ret, err := c.ProcessOrders(cmd.Context(), sourceRoot, targetRoot)
		if err != nil {
			return err
		}
		report("preprocess", ret)
		return nil
	},
}

var masksCmd = &cobra.Command{
	Use:   "masks",
	Short: "rasterize annotation polygons into per-class masks of each chip",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := aquaprep.NewMaskBuilder(gdalio.NewGdalToolbox(), cfg)
		if err != nil {
			return err
		}
		ret, err := b.BuildMasks(cmd.Context(), annotations, preppedRoot)
		if err != nil {
			return err
		}
		report("masks", ret)
		return nil
	},
}

// 单元级的跳过与失败只记录，不影响退出码
func report(name string, ret *aquaprep.BatchResult) {
	log.Info(name+" finished", zap.Int("done", len(ret.Done)), zap.Int("skipped", len(ret.Skipped)),
		zap.Int("failed", len(ret.Failed)))
	for _, u := range ret.Skipped {
		log.Info(name+" skipped", zap.String("unit", u))
	}
	if ret.Err != nil {
		log.Warn(name+" finished with unit errors", zap.Strings("failed", ret.Failed), zap.Error(ret.Err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "yaml config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "json formatted logs")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", aquaprep.DefaultWorkers, "number of scenes/records processed concurrently")
	rootCmd.AddCommand(preprocessCmd, masksCmd)

	preprocessCmd.Flags().StringVar(&sourceRoot, "source", "", "root dir of orders (<source>/<order>/<scene>/*SR.tif)")
	preprocessCmd.MarkFlagRequired("source")
	preprocessCmd.Flags().StringVar(&targetRoot, "target", "", "output root of chipped scenes")
	preprocessCmd.MarkFlagRequired("target")
	preprocessCmd.Flags().IntVar(&chipSize, "chip-size", aquaprep.DefaultChipSize, "chip side length in pixels")

	masksCmd.Flags().StringVar(&annotations, "annotations", "", "annotation export json")
	masksCmd.MarkFlagRequired("annotations")
	masksCmd.Flags().StringVar(&preppedRoot, "prepped", "", "root of prepped chips (<prepped>/<chip>/image/<chip>.tif)")
	masksCmd.MarkFlagRequired("prepped")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error("aquaprep failed", zap.Error(err))
		log.Sync()
		cancel()
		os.Exit(1)
	}
}
