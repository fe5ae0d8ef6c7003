package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

// configBuilder collects configuration layers in priority order (earlier
// layers win) and merges them in build. Layer parse errors are joined and
// surfaced once, so a bad flag and a bad env var both show up.
type configBuilder struct {
	layers []*StructuredConfig
	err    error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{
		layers: make([]*StructuredConfig, 0, 3),
	}
}

func (b *configBuilder) build() (*StructuredConfig, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	merged := new(StructuredConfig)
	for _, layer := range b.layers {
		if err := mergo.Merge(merged, layer); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	merged.applyDefaults()

	return merged, merged.validate()
}

func (b *configBuilder) withEnv() *configBuilder {
	layer := &StructuredConfig{}
	if err := parseEnv(layer); err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	b.layers = append(b.layers, layer)
	return b
}

func (b *configBuilder) withFlags() *configBuilder {
	b.layers = append(b.layers, ParseFlags())
	return b
}

// withJSON loads the optional JSON file when an earlier layer (env or
// flags) named one. No file named means no JSON layer.
func (b *configBuilder) withJSON() *configBuilder {
	var jsonPath string
	for _, layer := range b.layers {
		if layer.JSONFilePath != "" {
			jsonPath = layer.JSONFilePath
		}
	}
	if jsonPath == "" {
		return b
	}

	layer, err := parseJSON(jsonPath)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	b.layers = append(b.layers, layer)
	return b
}
