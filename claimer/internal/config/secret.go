package config

import (
	"errors"
	"log/slog"

	"github.com/thecrazygm/claim-rewards/utils/pkg/logger"
)

const (
	EnvPostingKey = "POSTING_KEY"
	EnvPostingWIF = "POSTING_WIF"
)

var ErrNoSecret = errors.New("posting key must be provided via --posting-key, the config file, or the " + EnvPostingKey + " env variable")

// Source says where a credential came from.
type Source string

const (
	SourceFlag   Source = "command line"
	SourceFile   Source = "config file"
	SourceEnvKey Source = EnvPostingKey + " env"
	SourceEnvWIF Source = EnvPostingWIF + " env"
)

// Credential is a resolved posting key. It formats and logs without the
// secret.
type Credential struct {
	Value  string
	Source Source
}

func (c Credential) String() string {
	return "credential(" + string(c.Source) + ")"
}

func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("source", string(c.Source)),
		slog.String("value", logger.Redacted),
	)
}

// ResolveSecret picks the posting key by precedence: command line, config
// file, POSTING_KEY, POSTING_WIF. The value is not validated here.
func ResolveSecret(cli, file string, getenv func(string) string) (Credential, error) {
	switch {
	case cli != "":
		return Credential{Value: cli, Source: SourceFlag}, nil
	case file != "":
		return Credential{Value: file, Source: SourceFile}, nil
	}
	if getenv != nil {
		if v := getenv(EnvPostingKey); v != "" {
			return Credential{Value: v, Source: SourceEnvKey}, nil
		}
		if v := getenv(EnvPostingWIF); v != "" {
			return Credential{Value: v, Source: SourceEnvWIF}, nil
		}
	}
	return Credential{}, ErrNoSecret
}
