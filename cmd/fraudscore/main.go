package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rushteam/fraudkit/config"
	"github.com/rushteam/fraudkit/pkg/logger"
)

var (
	cfgFile string
	cfg     config.Config
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "fraudscore",
		Short: "Credit card fraud scoring",
		Long: `fraudscore scores a single credit card transaction with a pre-trained classifier.

Artifacts (<model>_model.json, time_amount_scaler.json) are read from --artifact-dir,
defaulting to the models directory next to the executable.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	config.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./fraudscore.yaml)")
	rootCmd.PersistentFlags().String("artifact-dir", "", "directory holding model and scaler artifacts")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("artifact_dir", rootCmd.PersistentFlags().Lookup("artifact-dir"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("received interrupt signal, shutting down")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// loadConfig 读取配置文件与环境变量并初始化日志
func loadConfig() (config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("fraudscore")
		viper.SetConfigType("yaml")
	}
	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config.Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, err
	}
	if err := logger.Init(loaded.Log.Level, loaded.Log.Format); err != nil {
		return config.Config{}, fmt.Errorf("failed to setup logging: %w", err)
	}
	return loaded, nil
}
