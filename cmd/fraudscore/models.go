package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/fraudkit/artifact"
	"github.com/rushteam/fraudkit/catalog"
)

type catalogView struct {
	ArtifactDir string                     `json:"artifactDir"`
	Models      []string                   `json:"models"`
	Metrics     map[string]catalog.Metrics `json:"metrics"`
	Features    []string                   `json:"features"`
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "Print available models, their metrics and the feature order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver, err := artifact.NewResolver(cfg.ArtifactDir)
			if err != nil {
				return err
			}
			cat, err := catalog.Load(resolver.BaseDir())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(catalogView{
				ArtifactDir: resolver.BaseDir(),
				Models:      cat.Models(),
				Metrics:     cat.Metrics(),
				Features:    cat.FeatureNames(),
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "fraudscore "+version)
		},
	}
}
