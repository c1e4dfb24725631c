package config

import "github.com/spf13/viper"

// Receipt is the resolved style and halftone configuration consumed by the
// render and halftone stages. A value is an immutable snapshot; live changes
// go through ReceiptStore.
type Receipt struct {
	Preset string `mapstructure:"preset"` // clean|compact|bigtitle

	TitleSize int `mapstructure:"titleSize"`
	TextSize  int `mapstructure:"textSize"`
	TimeSize  int `mapstructure:"timeSize"`

	TitleFont string `mapstructure:"titleFont"`
	TextFont  string `mapstructure:"textFont"`
	TimeFont  string `mapstructure:"timeFont"`

	MarginTop    int `mapstructure:"marginTop"`
	MarginBottom int `mapstructure:"marginBottom"`
	MarginLeft   int `mapstructure:"marginLeft"`
	MarginRight  int `mapstructure:"marginRight"`

	GapTitleText int     `mapstructure:"gapTitleText"`
	LineHeight   float64 `mapstructure:"lineHeight"`

	AlignTitle string `mapstructure:"alignTitle"` // left|center|right
	AlignText  string `mapstructure:"alignText"`
	AlignTime  string `mapstructure:"alignTime"`

	TimeShowMinutes bool   `mapstructure:"timeShowMinutes"`
	TimeShowSeconds bool   `mapstructure:"timeShowSeconds"`
	TimePrefix      string `mapstructure:"timePrefix"`

	RuleAfterTitle bool `mapstructure:"ruleAfterTitle"`
	RulePx         int  `mapstructure:"rulePx"`
	RulePad        int  `mapstructure:"rulePad"`

	Dither       string  `mapstructure:"dither"` // none|threshold|floyd|bayer
	Threshold    int     `mapstructure:"threshold"`
	Gamma        float64 `mapstructure:"gamma"`
	Brightness   float64 `mapstructure:"brightness"`
	Contrast     float64 `mapstructure:"contrast"`
	Invert       bool    `mapstructure:"invert"`
	GrayscalePNG bool    `mapstructure:"grayscalePNG"`
}

// DefaultReceipt returns the "clean" preset baseline.
func DefaultReceipt() Receipt {
	return Receipt{
		Preset:          "clean",
		TitleSize:       36,
		TextSize:        28,
		TimeSize:        24,
		TitleFont:       "DejaVuSans.ttf",
		TextFont:        "DejaVuSans.ttf",
		TimeFont:        "DejaVuSans.ttf",
		MarginTop:       60,
		MarginBottom:    18,
		MarginLeft:      18,
		MarginRight:     18,
		GapTitleText:    10,
		LineHeight:      1.15,
		AlignTitle:      "left",
		AlignText:       "left",
		AlignTime:       "left",
		TimeShowMinutes: true,
		TimePrefix:      "",
		RulePx:          1,
		RulePad:         6,
		Dither:          "floyd",
		Threshold:       128,
		Gamma:           1.0,
		Brightness:      1.0,
		Contrast:        1.0,
	}
}

// ApplyPreset overrides fields according to the named preset. Unknown
// presets behave like "clean" (no override).
func (r *Receipt) ApplyPreset() {
	switch r.Preset {
	case "compact":
		r.TitleSize, r.TextSize, r.TimeSize = 30, 24, 22
		r.MarginTop, r.MarginBottom = 16, 12
		r.GapTitleText = 6
		r.LineHeight = 1.05
	case "bigtitle":
		if r.TitleSize < 44 {
			r.TitleSize = 44
		}
		if r.GapTitleText < 14 {
			r.GapTitleText = 14
		}
		r.RuleAfterTitle = true
	}
}

func setReceiptDefaults(v *viper.Viper) {
	d := DefaultReceipt()
	v.SetDefault("receipt.preset", d.Preset)
	v.SetDefault("receipt.titleSize", d.TitleSize)
	v.SetDefault("receipt.textSize", d.TextSize)
	v.SetDefault("receipt.timeSize", d.TimeSize)
	v.SetDefault("receipt.titleFont", d.TitleFont)
	v.SetDefault("receipt.textFont", d.TextFont)
	v.SetDefault("receipt.timeFont", d.TimeFont)
	v.SetDefault("receipt.marginTop", d.MarginTop)
	v.SetDefault("receipt.marginBottom", d.MarginBottom)
	v.SetDefault("receipt.marginLeft", d.MarginLeft)
	v.SetDefault("receipt.marginRight", d.MarginRight)
	v.SetDefault("receipt.gapTitleText", d.GapTitleText)
	v.SetDefault("receipt.lineHeight", d.LineHeight)
	v.SetDefault("receipt.alignTitle", d.AlignTitle)
	v.SetDefault("receipt.alignText", d.AlignText)
	v.SetDefault("receipt.alignTime", d.AlignTime)
	v.SetDefault("receipt.timeShowMinutes", d.TimeShowMinutes)
	v.SetDefault("receipt.timeShowSeconds", d.TimeShowSeconds)
	v.SetDefault("receipt.timePrefix", d.TimePrefix)
	v.SetDefault("receipt.ruleAfterTitle", d.RuleAfterTitle)
	v.SetDefault("receipt.rulePx", d.RulePx)
	v.SetDefault("receipt.rulePad", d.RulePad)
	v.SetDefault("receipt.dither", d.Dither)
	v.SetDefault("receipt.threshold", d.Threshold)
	v.SetDefault("receipt.gamma", d.Gamma)
	v.SetDefault("receipt.brightness", d.Brightness)
	v.SetDefault("receipt.contrast", d.Contrast)
	v.SetDefault("receipt.invert", d.Invert)
	v.SetDefault("receipt.grayscalePNG", d.GrayscalePNG)
}
