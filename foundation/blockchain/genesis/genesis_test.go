package genesis_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const jsonGenesis = `{
	"date": "2024-01-01T00:00:00Z",
	"chain_id": 1,
	"difficulty": 4,
	"mining_reward": 100,
	"balances": {"alice": 50, "bob": 5}
}`

const yamlGenesis = `date: 2024-01-01T00:00:00Z
chain_id: 1
difficulty: 4
mining_reward: 100
balances:
  alice: 50
  bob: 5
`

const tomlGenesis = `date = 2024-01-01T00:00:00Z
chain_id = 1
difficulty = 4
mining_reward = 100

[balances]
alice = 50
bob = 5
`

func Test_Load(t *testing.T) {
	tt := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "genesis.json", jsonGenesis},
		{"yaml", "genesis.yaml", yamlGenesis},
		{"yml", "genesis.yml", yamlGenesis},
		{"toml", "genesis.toml", tomlGenesis},
	}

	t.Log("Given the need to load genesis files in different formats.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling a %s file.", testID, tst.name)
				{
					path := filepath.Join(t.TempDir(), tst.file)
					if err := os.WriteFile(path, []byte(tst.content), 0600); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to write the file: %v", failed, testID, err)
					}

					gen, err := genesis.Load(path)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to load the genesis: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to load the genesis.", success, testID)

					if gen.Difficulty != 4 || gen.MiningReward != 100 || gen.ChainID != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould get the configured values: %+v", failed, testID, gen)
					}
					t.Logf("\t%s\tTest %d:\tShould get the configured values.", success, testID)

					if gen.Balances["alice"] != 50 || gen.Balances["bob"] != 5 {
						t.Fatalf("\t%s\tTest %d:\tShould get the configured balances: %v", failed, testID, gen.Balances)
					}
					t.Logf("\t%s\tTest %d:\tShould get the configured balances.", success, testID)

					if gen.Date.Year() != 2024 {
						t.Fatalf("\t%s\tTest %d:\tShould get the configured date: %v", failed, testID, gen.Date)
					}
					t.Logf("\t%s\tTest %d:\tShould get the configured date.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_LoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := genesis.Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("Should not load a missing file.")
	}

	unknown := filepath.Join(dir, "genesis.ini")
	os.WriteFile(unknown, []byte("difficulty=1"), 0600)
	if _, err := genesis.Load(unknown); err == nil {
		t.Fatalf("Should not load an unknown format.")
	}

	noReward := filepath.Join(dir, "genesis.json")
	os.WriteFile(noReward, []byte(`{"difficulty": 4}`), 0600)
	if _, err := genesis.Load(noReward); err == nil {
		t.Fatalf("Should not load a genesis without a mining reward.")
	}
}

func Test_Validate(t *testing.T) {
	gen := genesis.Default()
	if err := gen.Validate(); err != nil {
		t.Fatalf("Should validate the default genesis: %v", err)
	}

	gen.Difficulty = genesis.MaxDifficulty + 1
	if err := gen.Validate(); err == nil {
		t.Fatalf("Should reject a difficulty larger than the hash.")
	}

	gen = genesis.Default()
	gen.Balances[" "] = 10
	if err := gen.Validate(); err == nil {
		t.Fatalf("Should reject an empty account.")
	}

	gen = genesis.Default()
	gen.Balances = map[string]uint64{"alice": 50, " alice": 50}
	if err := gen.Validate(); err == nil {
		t.Fatalf("Should reject two names for the same account.")
	}

	gen = genesis.Default()
	gen.Balances = map[string]uint64{"alice": math.MaxUint64, "bob": 1}
	if err := gen.Validate(); err == nil {
		t.Fatalf("Should reject balances that add up past the largest amount.")
	}

	gen.Balances = map[string]uint64{"alice": math.MaxUint64}
	if err := gen.Validate(); err != nil {
		t.Fatalf("Should accept the largest amount for one account: %v", err)
	}
}
