package logger

// Flag targets bound by the root command. Quiet wins over verbose.
var (
	FlagVerbose bool // --verbose
	FlagQuiet   bool // --quiet/-q
	FlagJSON    bool // --json, for scheduled/CI runs
)

// ConfigureLoggerFromFlags applies the parsed global flags. The root
// command calls it before any subcommand runs.
func ConfigureLoggerFromFlags() {
	level := "info"
	switch {
	case FlagQuiet:
		level = "error"
	case FlagVerbose:
		level = "debug"
	}

	Configure(Options{
		Level: level,
		JSON:  FlagJSON,
		Color: !FlagJSON,
	})
}
