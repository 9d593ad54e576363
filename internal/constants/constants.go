package constants

// Tool name and related constants
const (
	// AppName is the name of this tool
	AppName = "ccheck"

	// ConfigFileName is the config file written by `ccheck init`
	ConfigFileName = "ccheck.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "CCHECK"
)

// ConfigFileNames are the configuration file names searched for, in order of preference
var ConfigFileNames = []string{
	"ccheck.yaml",
	"ccheck.yml",
	".ccheck.yaml",
	".ccheck.yml",
	"ccheck.toml",
	".ccheck.toml",
	"ccheck.json",
}

// Per-rule file names inside a rule directory
const (
	RuleConfigSuffix  = "_config.yml"
	RuleWaiversSuffix = "_waivers.yml"
)

// Output format constants
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Exit codes of the CLI
const (
	ExitOK         = 0
	ExitViolations = 1
	ExitError      = 2
)
