package config

import (
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"pvn/common"
	"pvn/logx"
)

// LoadGenesisConfig reads and parses the genesis.yml file
func LoadGenesisConfig(path string) (*GenesisConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		logx.Error("CONFIG", "Failed to open genesis file: ", err)
		return nil, err
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		logx.Error("CONFIG", "Failed to decode genesis YAML: ", err)
		return nil, err
	}
	if cfgFile.Config.MacroInterval == 0 {
		cfgFile.Config.MacroInterval = MacroInterval
	}
	for _, v := range cfgFile.Config.Validators {
		if _, err := common.DecodeBase58ToBytes(v.Pubkey); err != nil {
			return nil, logx.Errorf("invalid validator pubkey %q in genesis: %v", v.Pubkey, err)
		}
	}
	logx.Info("CONFIG", "Loaded genesis: chain=", cfgFile.Config.ChainID,
		" validators=", len(cfgFile.Config.Validators),
		" shards=", cfgFile.Config.ShardCount)
	return &cfgFile.Config, nil
}

// ConsensusConfig holds the tunable consensus parameters. Governance
// produces these numbers; this core only consumes them.
type ConsensusConfig struct {
	TargetSpacingMs  uint64  `ini:"target_spacing_ms"`
	DifficultyWindow int     `ini:"difficulty_window"`
	ClampFactor      float64 `ini:"clamp_factor"`
	MacroInterval    uint64  `ini:"macro_interval"`
}

// DefaultConsensusConfig returns the built-in parameter set.
func DefaultConsensusConfig() *ConsensusConfig {
	return &ConsensusConfig{
		TargetSpacingMs:  TargetSpacingMs,
		DifficultyWindow: DifficultyWindow,
		ClampFactor:      DifficultyClampFactor,
		MacroInterval:    MacroInterval,
	}
}

// LoadConsensusConfig reads consensus parameters from an .ini file.
// Missing or zero fields fall back to the defaults.
func LoadConsensusConfig(path string) (*ConsensusConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	section := cfg.Section("consensus")
	consensusCfg := &ConsensusConfig{}
	if err := section.MapTo(consensusCfg); err != nil {
		return nil, err
	}
	defaults := DefaultConsensusConfig()
	if consensusCfg.TargetSpacingMs == 0 {
		consensusCfg.TargetSpacingMs = defaults.TargetSpacingMs
	}
	if consensusCfg.DifficultyWindow == 0 {
		consensusCfg.DifficultyWindow = defaults.DifficultyWindow
	}
	if consensusCfg.ClampFactor == 0 {
		consensusCfg.ClampFactor = defaults.ClampFactor
	}
	if consensusCfg.MacroInterval == 0 {
		consensusCfg.MacroInterval = defaults.MacroInterval
	}
	return consensusCfg, nil
}
