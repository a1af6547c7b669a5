// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Default values used when no genesis file is provided.
const (
	DefaultDifficulty   = 8
	DefaultMiningReward = 100
)

// MaxDifficulty is the largest number of leading zero bits a sha256 hash
// can be asked to carry.
const MaxDifficulty = 256

// Genesis represents the genesis file.
type Genesis struct {
	Date         time.Time         `json:"date" yaml:"date" toml:"date"`
	ChainID      uint16            `json:"chain_id" yaml:"chain_id" toml:"chain_id"`                // The chain id represents an unique id for this running instance.
	Difficulty   uint16            `json:"difficulty" yaml:"difficulty" toml:"difficulty"`          // Number of leading zero bits a block hash must have.
	MiningReward uint64            `json:"mining_reward" yaml:"mining_reward" toml:"mining_reward"` // Reward for mining a block.
	Balances     map[string]uint64 `json:"balances" yaml:"balances" toml:"balances"`                // Allocations applied only to the genesis block.
}

// Default returns the genesis used when none is configured.
func Default() Genesis {
	return Genesis{
		Date:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:      1,
		Difficulty:   DefaultDifficulty,
		MiningReward: DefaultMiningReward,
		Balances:     map[string]uint64{},
	}
}

// =============================================================================

// Load opens and consumes the genesis file. The format is chosen by the file
// extension: .json, .yaml/.yml or .toml.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(content, &genesis)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &genesis)
	case ".toml":
		_, err = toml.Decode(string(content), &genesis)
	default:
		return Genesis{}, fmt.Errorf("unsupported genesis format %q", ext)
	}
	if err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis %s: %w", path, err)
	}

	if genesis.Balances == nil {
		genesis.Balances = map[string]uint64{}
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the genesis values are usable.
func (g Genesis) Validate() error {
	if g.Difficulty > MaxDifficulty {
		return fmt.Errorf("difficulty %d is larger than %d", g.Difficulty, MaxDifficulty)
	}

	if g.MiningReward == 0 {
		return errors.New("mining reward must be greater than zero")
	}

	seen := make(map[string]string, len(g.Balances))
	var total uint64
	for account, value := range g.Balances {
		name := strings.TrimSpace(account)
		if name == "" {
			return errors.New("genesis balance has an empty account")
		}

		if other, exists := seen[name]; exists {
			return fmt.Errorf("genesis balances %q and %q are the same account", other, account)
		}
		seen[name] = account

		if value > math.MaxUint64-total {
			return fmt.Errorf("genesis balances add up to more than %d", uint64(math.MaxUint64))
		}
		total += value
	}

	return nil
}
