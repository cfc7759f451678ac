package render

import "github.com/diogo/promptin/internal/config"

// OptionsFromConfig maps the markdown section of cfg onto render options.
// GLAMOUR_STYLE is already folded into cfg by config.ApplyEnv.
func OptionsFromConfig(cfg config.Config) Options {
	opts := DefaultOptions()

	md := cfg.Markdown
	if md.Style != "" {
		opts.Style = md.Style
	}
	opts.EnableEmoji = md.EnableEmoji
	opts.PreserveNewLines = md.PreserveNewLines
	opts.TableWrap = md.TableWrap
	opts.InlineTableLinks = md.InlineTableLinks

	return opts
}
