// Copyright 2024 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/524D/protinfer/internal/infer"
)

// loadConfig reads inference parameters from a YAML file on top of the
// defaults. An empty filename returns the defaults unchanged.
func loadConfig(filename string) (infer.Params, error) {
	cfg := infer.Default()
	if filename == "" {
		return cfg, nil
	}
	buf, err := os.ReadFile(filename)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// flagsSet reports which flags were given on the command line, so that a
// flag left at its default does not clobber a config-file value.
func flagsSet() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// mergeFlags overlays command line options onto the configuration.
// Explicitly given flags win over the config file.
func mergeFlags(cfg *infer.Params, par params, set map[string]bool) {
	if set["annotategroups"] {
		cfg.AnnotateGroupsOnly = *par.annotateGroups
	}
	if set["extended"] {
		cfg.ExtendedModel = *par.extendedModel
	}
	if set["toppsms"] {
		cfg.TopPSMs = *par.topPSMs
	}
	if set["workers"] {
		cfg.Workers = *par.workers
	}
}
