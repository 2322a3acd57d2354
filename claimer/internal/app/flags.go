package app

import (
	"strings"

	flag "github.com/spf13/pflag"
)

type flags struct {
	accounts    string
	postingKey  string
	debug       bool
	dryRun      bool
	nodes       []string
	scotAPIURL  string
	metricsFile string
	envFile     string
	version     bool
}

// normalizeFlagName maps the spellings older releases accepted onto the
// canonical flag names.
func normalizeFlagName(_ *flag.FlagSet, name string) flag.NormalizedName {
	name = strings.ReplaceAll(name, "_", "-")
	if name == "wif" {
		name = "posting-key"
	}
	return flag.NormalizedName(name)
}

func parseFlags(variant Variant, args []string) (*flags, *flag.FlagSet, error) {
	f := &flags{}
	fs := flag.NewFlagSet(variant.Binary(), flag.ContinueOnError)
	fs.SetNormalizeFunc(normalizeFlagName)

	keyShorthand := "k"
	if variant == VariantScot {
		keyShorthand = "w"
	}

	fs.StringVarP(&f.accounts, "accounts", "a", "", "Path to YAML file with the account list and optional posting key (default "+`"accounts.yaml"`+")")
	fs.StringVarP(&f.postingKey, "posting-key", keyShorthand, "", "Posting key of the authority account (overrides the config file and POSTING_KEY)")
	fs.BoolVarP(&f.debug, "debug", "d", false, "Enable debug logging")
	fs.BoolVarP(&f.dryRun, "dry-run", "n", false, "Simulate claims without broadcasting")
	fs.StringSliceVar(&f.nodes, "nodes", nil, "Hive API nodes to rank and use (or set HIVE_NODES env var)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "Write prometheus metrics to this file when the run ends")
	fs.StringVar(&f.envFile, "env-file", ".env", "Load environment variables from this file if it exists")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")
	if variant == VariantScot {
		fs.StringVar(&f.scotAPIURL, "scot-api-url", "", "SCOT API base URL (or set SCOT_API_URL env var)")
	}

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return f, fs, nil
}
