package config

import (
	"os"

	"sealvault-node/types"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "SEALVAULT"

/**
 * Load reads the node config from path, falling back to defaults for any
 * unset field, then applies SEALVAULT_* environment overrides.
 */
func Load(path string) (*Node, error) {
	cfg := DefaultNode()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, types.Wrap(types.ErrDecodeConfigFailed, err)
		}
	} else {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, types.Wrap(types.ErrDecodeConfigFailed, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, types.Wrap(types.ErrDecodeConfigFailed, err)
	}

	return cfg, nil
}

/**
 * Write persists cfg at path, creating the file.
 */
func Write(path string, cfg *Node) error {
	data, err := NodeBytes(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return types.Wrap(types.ErrEncodeConfigFailed, err)
	}
	return nil
}
