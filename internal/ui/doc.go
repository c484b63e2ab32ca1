// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI renders a playlist conversion as it runs:
//  1. [ConvertView] : Live progress while tracks are searched and added
//  2. [ResultView] : Final link, match counts and any failed tracks
//
// The [Model] implements bubbletea's standard Init/Update/View pattern.
// Progress updates flow through a channel from the conversion engine,
// providing non-blocking status reporting while tracks are processed.
package ui
