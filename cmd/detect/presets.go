package main

import (
	"github.com/urfave/cli/v2"

	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/report"
)

func presetsAction(c *cli.Context) error {
	var presets []model.Config
	for _, name := range []model.Name{model.ModelNameSSD, model.ModelNameNanoDet, model.ModelNameMobileNetV2} {
		cfg, err := model.DefaultConfig(name)
		if err != nil {
			return err
		}
		presets = append(presets, cfg)
	}
	report.WritePresets(c.App.Writer, presets)
	return nil
}
