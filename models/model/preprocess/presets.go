package preprocess

// GetNanoDetConfig returns the preprocessing NanoDet-m was trained with:
// 320x320 RGB, mean (0.408, 0.447, 0.470) and std (0.289, 0.274, 0.278) on
// the 0-1 scale, expressed here in 0-255 units.
//
// @example
// config := GetNanoDetConfig()
// preprocessor, err := NewPreprocessor(config)
func GetNanoDetConfig() Config {
	return Config{
		InputWidth:        320,
		InputHeight:       320,
		NormalizationType: NormalizeStandardize,
		MeanValues:        []float32{104.04, 113.985, 119.85},
		StdValues:         []float32{73.695, 69.87, 70.89},
		ChannelOrder:      ChannelOrderCHW,
		ColorMode:         ColorModeRGB,
	}
}

// GetSSDConfig returns the preprocessing of MobileNetV3 SSDLite: 300x300 RGB
// with the ImageNet mean subtracted and no scaling.
func GetSSDConfig() Config {
	return Config{
		InputWidth:        300,
		InputHeight:       300,
		NormalizationType: NormalizeStandardize,
		MeanValues:        []float32{123.675, 116.28, 103.53},
		StdValues:         []float32{1, 1, 1},
		ChannelOrder:      ChannelOrderCHW,
		ColorMode:         ColorModeRGB,
	}
}

// GetMobileNetV2Config returns the classification preprocessing of
// MobileNetV2: 224x224 BGR mapped to [-1, 1) via (v - 128) / 128.
func GetMobileNetV2Config() Config {
	return Config{
		InputWidth:        224,
		InputHeight:       224,
		NormalizationType: NormalizeStandardize,
		MeanValues:        []float32{128, 128, 128},
		StdValues:         []float32{128, 128, 128},
		ChannelOrder:      ChannelOrderCHW,
		ColorMode:         ColorModeBGR,
	}
}
