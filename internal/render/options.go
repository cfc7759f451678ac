// Package render turns assistant replies into styled terminal text.
package render

import (
	"fmt"
	"strings"
)

// Options configures the markdown renderer behavior.
type Options struct {
	// Width is the wrap width; 0 disables wrapping
	Width int

	// Style is a glamour style name ("dark", "light", "notty", "auto")
	// or a path to a JSON style file
	Style string

	EnableEmoji      bool
	PreserveNewLines bool
	TableWrap        bool
	InlineTableLinks bool
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		Width:            80,
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// WithWidth returns Options with the specified width.
func (o Options) WithWidth(width int) Options {
	if width < 0 {
		width = 0
	}
	o.Width = width
	return o
}

// WithStyle returns Options with the specified style.
func (o Options) WithStyle(style string) Options {
	o.Style = style
	return o
}

// Plain reports whether the style asks for no ANSI styling at all
func (o Options) Plain() bool {
	return strings.EqualFold(o.Style, "notty") || strings.EqualFold(o.Style, "ascii")
}

func (o Options) key() string {
	return fmt.Sprintf("%s:%d:%t:%t:%t:%t",
		o.Style,
		o.Width,
		o.EnableEmoji,
		o.PreserveNewLines,
		o.TableWrap,
		o.InlineTableLinks,
	)
}
