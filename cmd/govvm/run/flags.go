// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/luxfi/govvm/config"
	"github.com/luxfi/govvm/utils/profiler"
)

const (
	ConfigFileKey = "config-file"
	HTTPHostKey   = "http-host"
	HTTPPortKey   = "http-port"
	DataDirKey    = "data-dir"
	OriginsKey    = "allowed-origins"

	ProfileDirKey      = "profile-dir"
	ProfileFreqKey     = "profile-freq"
	ProfileMaxFilesKey = "profile-max-files"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(ConfigFileKey, "", "JSON config file (required unless every genesis field has a default)")
	flags.String(HTTPHostKey, config.DefaultConfig.HTTPHost, "Address to serve the API on")
	flags.Uint16(HTTPPortKey, config.DefaultConfig.HTTPPort, "Port to serve the API on")
	flags.String(DataDirKey, "", "Database directory, empty keeps all state in memory")
	flags.StringSlice(OriginsKey, []string{"*"}, "Origins allowed to make cross-origin API calls")
	flags.String(ProfileDirKey, "", "Directory to write rotating pprof profiles to, empty disables profiling")
	flags.Duration(ProfileFreqKey, 15*time.Minute, "How long each profile covers")
	flags.Int(ProfileMaxFilesKey, 5, "Number of old profiles of each kind to keep")
}

type Flags struct {
	Config         config.Config
	AllowedOrigins []string
	Profile        profiler.Config
}

// ParseFlags reads the config file and applies any flag set explicitly on
// top of it.
func ParseFlags(flags *pflag.FlagSet, args []string) (*Flags, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	configFile, err := flags.GetString(ConfigFileKey)
	if err != nil {
		return nil, err
	}
	var configBytes []byte
	if configFile != "" {
		configBytes, err = os.ReadFile(configFile)
		if err != nil {
			return nil, err
		}
	}
	cfg, err := config.ParseConfig(configBytes)
	if err != nil {
		return nil, err
	}

	if flags.Changed(HTTPHostKey) {
		if cfg.HTTPHost, err = flags.GetString(HTTPHostKey); err != nil {
			return nil, err
		}
	}
	if flags.Changed(HTTPPortKey) {
		if cfg.HTTPPort, err = flags.GetUint16(HTTPPortKey); err != nil {
			return nil, err
		}
	}
	if flags.Changed(DataDirKey) {
		if cfg.DataDir, err = flags.GetString(DataDirKey); err != nil {
			return nil, err
		}
	}

	origins, err := flags.GetStringSlice(OriginsKey)
	if err != nil {
		return nil, err
	}
	profileDir, err := flags.GetString(ProfileDirKey)
	if err != nil {
		return nil, err
	}
	profileFreq, err := flags.GetDuration(ProfileFreqKey)
	if err != nil {
		return nil, err
	}
	profileMaxFiles, err := flags.GetInt(ProfileMaxFilesKey)
	if err != nil {
		return nil, err
	}
	return &Flags{
		Config:         cfg,
		AllowedOrigins: origins,
		Profile: profiler.Config{
			Dir:      profileDir,
			Freq:     profileFreq,
			MaxFiles: profileMaxFiles,
		},
	}, nil
}
