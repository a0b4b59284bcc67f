// Package meshlog provides leveled logging backed by pterm prefixed printers.
package meshlog

import "github.com/pterm/pterm"

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 2006 15:04:05"
}

func Debug(format string, args ...interface{}) {
	pterm.Debug.Printfln(format, args...)
}

func Info(format string, args ...interface{}) {
	pterm.Info.Printfln(format, args...)
}

func Success(format string, args ...interface{}) {
	pterm.Success.Printfln(format, args...)
}

func Warning(format string, args ...interface{}) {
	pterm.Warning.Printfln(format, args...)
}

func Error(format string, args ...interface{}) {
	pterm.Error.Printfln(format, args...)
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
	pterm.EnableDebugMessages()
}
