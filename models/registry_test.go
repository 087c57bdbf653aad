package models

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/models/mobilenet"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/nanodet"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/models/ssd"
)

func preset(t testing.TB, name model.Name) model.Config {
	cfg, err := model.DefaultConfig(name)
	require.NoError(t, err)
	return cfg
}

func TestNewDecoder(t *testing.T) {
	tests := []struct {
		name model.Name
		want interface{}
	}{
		{model.ModelNameSSD, &ssd.SSD{}},
		{model.ModelNameNanoDet, &nanodet.NanoDet{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			cfg := preset(t, tt.name)
			table, err := LoadLabels(cfg)
			require.NoError(t, err)

			decoder, err := NewDecoder(cfg, table)
			require.NoError(t, err)
			assert.IsType(t, tt.want, decoder)
		})
	}
}

func TestNewDecoderRejects(t *testing.T) {
	_, err := NewDecoder(preset(t, model.ModelNameMobileNetV2), nil)
	assert.True(t, errors.Is(err, postprocess.ErrInvalidConfig))

	cfg := preset(t, model.ModelNameSSD)
	cfg.Name = "yolov4"
	_, err = NewDecoder(cfg, nil)
	assert.True(t, errors.Is(err, postprocess.ErrInvalidConfig))
}

func TestNewClassifier(t *testing.T) {
	cfg := preset(t, model.ModelNameMobileNetV2)
	table, err := LoadLabels(cfg)
	require.NoError(t, err)
	assert.Nil(t, table)

	c, err := NewClassifier(cfg, table)
	require.NoError(t, err)
	assert.IsType(t, &mobilenet.MobileNet{}, c)

	_, err = NewClassifier(preset(t, model.ModelNameNanoDet), nil)
	assert.True(t, errors.Is(err, postprocess.ErrInvalidConfig))
}

func TestLoadLabels(t *testing.T) {
	cfg := preset(t, model.ModelNameNanoDet)
	cfg.Labels = ""
	_, err := LoadLabels(cfg)
	assert.True(t, errors.Is(err, postprocess.ErrInvalidConfig))

	cfg.Labels = "builtin:nope"
	_, err = LoadLabels(cfg)
	assert.Error(t, err)

	cfg.Labels = "builtin:coco"
	table, err := LoadLabels(cfg)
	require.NoError(t, err)
	assert.Equal(t, 80, table.Len())
}
