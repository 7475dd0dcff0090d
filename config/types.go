package config

// GenesisValidator is one bonded validator in the genesis UNL
type GenesisValidator struct {
	Pubkey string `yaml:"pubkey"`
	Stake  uint64 `yaml:"stake"`
}

// GenesisConfig holds the configuration from genesis.yml
type GenesisConfig struct {
	ChainID       string             `yaml:"chain_id"`
	ShardCount    uint32             `yaml:"shard_count"`
	MacroInterval uint64             `yaml:"macro_interval"`
	Validators    []GenesisValidator `yaml:"validators"`
}

// ConfigFile is the top-level structure for genesis.yml
type ConfigFile struct {
	Config GenesisConfig `yaml:"config"`
}

// Stakes flattens the genesis validator list into the snapshot shape
// consumed by the staking ledger and validator set.
func (g *GenesisConfig) Stakes() map[string]uint64 {
	stakes := make(map[string]uint64, len(g.Validators))
	for _, v := range g.Validators {
		stakes[v.Pubkey] = v.Stake
	}
	return stakes
}
