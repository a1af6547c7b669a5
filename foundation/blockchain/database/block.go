package database

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/merkle"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/signature"
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64    `json:"number"`          // Position of the block in the chain, 0 is genesis.
	PrevBlockHash string    `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64    `json:"timestamp"`       // Time the block was mined in milliseconds.
	Nonce         uint64    `json:"nonce"`           // Value identified to solve the hash solution.
	BeneficiaryID AccountID `json:"beneficiary"`     // The account receiving the mining reward.
	Difficulty    uint16    `json:"difficulty"`      // Number of leading zero bits needed to solve the hash solution.
	MiningReward  uint64    `json:"mining_reward"`   // Coins minted for the beneficiary.
	TransRoot     string    `json:"trans_root"`      // Merkle root hash for the transactions in this block.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  *merkle.Tree[Tx]
}

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	BeneficiaryID AccountID
	Difficulty    uint16
	MiningReward  uint64
	PrevBlock     Block
	Trans         []Tx
	EvHandler     func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The reward transaction is added as
// the last transaction of the block.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	if _, err := ToAccountID(string(args.BeneficiaryID)); err != nil {
		return Block{}, fmt.Errorf("beneficiary: %w", err)
	}

	trans := make([]Tx, 0, len(args.Trans)+1)
	trans = append(trans, args.Trans...)
	trans = append(trans, NewRewardTx(args.BeneficiaryID, args.MiningReward))

	tree, root, err := newTree(trans)
	if err != nil {
		return Block{}, err
	}

	// The timestamp can't be before the parent's.
	ts := uint64(time.Now().UTC().UnixMilli())
	if ts < args.PrevBlock.Header.TimeStamp {
		ts = args.PrevBlock.Header.TimeStamp
	}

	nb := Block{
		Header: BlockHeader{
			Number:        args.PrevBlock.Header.Number + 1,
			PrevBlockHash: args.PrevBlock.Hash(),
			TimeStamp:     ts,
			Nonce:         0, // Will be identified by the POW algorithm.
			BeneficiaryID: args.BeneficiaryID,
			Difficulty:    args.Difficulty,
			MiningReward:  args.MiningReward,
			TransRoot:     root,
		},
		Trans: tree,
	}

	if err := nb.performPOW(ctx, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]: difficulty[%d]", b.Header.Number, b.Header.Difficulty)
	defer ev("database: PerformPOW: MINING: completed")

	// Log the transactions that are a part of this potential block.
	for _, tx := range b.Trans.Values() {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we get cancelled trying to solve the problem.
		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED: attempts[%d]", attempts)
			return ctx.Err()
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.Hash()
		if signature.IsHashSolved(b.Header.Difficulty, hash) {
			ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.Header.PrevBlockHash, hash, attempts)
			return nil
		}

		// The nonce space is exhausted, move the timestamp and start over.
		if b.Header.Nonce == math.MaxUint64 {
			b.Header.TimeStamp++
			b.Header.Nonce = 0
			continue
		}

		b.Header.Nonce++
	}
}

// Hash returns the unique hash for the Block. Only the header is hashed, the
// header commits to the transactions through the merkle root.
func (b Block) Hash() string {
	return signature.Hash(b.Header)
}

// Values returns a copy of the transactions in the block in order.
func (b Block) Values() []Tx {
	if b.Trans == nil {
		return []Tx{}
	}
	return b.Trans.Values()
}

// ValidateBlock takes a block and validates it to be included into the
// blockchain after the previous block.
func (b Block) ValidateBlock(previousBlock Block, difficulty uint16, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Header.Number)

	nextNumber := previousBlock.Header.Number + 1
	if b.Header.Number != nextNumber {
		return fmt.Errorf("%w: this block is not the next number, got %d, exp %d", ErrInvalidLink, b.Header.Number, nextNumber)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Header.Number)

	if prevHash := previousBlock.Hash(); b.Header.PrevBlockHash != prevHash {
		return fmt.Errorf("%w: parent block hash doesn't match our known parent, got %s, exp %s", ErrInvalidLink, b.Header.PrevBlockHash, prevHash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is not before parent block's timestamp", b.Header.Number)

	if b.Header.TimeStamp < previousBlock.Header.TimeStamp {
		return fmt.Errorf("%w: block timestamp is before parent block, parent %d, block %d", ErrInvalidLink, previousBlock.Header.TimeStamp, b.Header.TimeStamp)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: merkle root does match transactions", b.Header.Number)

	_, root, err := newTree(b.Values())
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidProofOfWork, err)
	}

	if b.Header.TransRoot != root {
		return fmt.Errorf("%w: merkle root does not match transactions, got %s, exp %s", ErrInvalidProofOfWork, root, b.Header.TransRoot)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block difficulty matches the chain difficulty", b.Header.Number)

	if b.Header.Difficulty < difficulty {
		return fmt.Errorf("%w: block difficulty is less than the chain difficulty, chain %d, block %d", ErrInvalidProofOfWork, difficulty, b.Header.Difficulty)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Header.Number)

	if hash := b.Hash(); !signature.IsHashSolved(b.Header.Difficulty, hash) {
		return fmt.Errorf("%w: %s has %d leading zero bits, need %d", ErrInvalidProofOfWork, hash, signature.LeadingZeroBits(hash), b.Header.Difficulty)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: transactions and mining reward", b.Header.Number)

	return b.validateTransactions()
}

// validateTransactions checks every transaction and that exactly one reward,
// placed last, pays the beneficiary the block's mining reward.
func (b Block) validateTransactions() error {
	trans := b.Values()
	if len(trans) == 0 {
		return fmt.Errorf("%w: block has no reward transaction", ErrInvalidReward)
	}

	last := len(trans) - 1
	for i, tx := range trans {
		if i == last {
			break
		}

		if tx.Kind != TxKindTransfer {
			return fmt.Errorf("%w: tx[%s] of kind %s is not allowed at position %d", ErrInvalidReward, tx.ID, tx.Kind, i)
		}

		if err := tx.Validate(); err != nil {
			return fmt.Errorf("tx[%s]: %w", tx.ID, err)
		}
	}

	reward := trans[last]
	if !reward.IsReward() {
		return fmt.Errorf("%w: last transaction is not the reward", ErrInvalidReward)
	}

	if err := reward.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidReward, err)
	}

	if reward.ToID != b.Header.BeneficiaryID || reward.Value != b.Header.MiningReward {
		return fmt.Errorf("%w: reward pays %s %d, exp %s %d", ErrInvalidReward, reward.ToID, reward.Value, b.Header.BeneficiaryID, b.Header.MiningReward)
	}

	return nil
}

// Summary returns the display information for the block.
func (b Block) Summary() BlockSummary {
	return BlockSummary{
		Number:        b.Header.Number,
		Hash:          b.Hash(),
		PrevBlockHash: b.Header.PrevBlockHash,
		TransCount:    len(b.Values()),
		TimeStamp:     b.Header.TimeStamp,
		Nonce:         b.Header.Nonce,
		BeneficiaryID: b.Header.BeneficiaryID,
	}
}

// =============================================================================

// BlockSummary is the read only view of a block used for display.
type BlockSummary struct {
	Number        uint64    `json:"number"`
	Hash          string    `json:"hash"`
	PrevBlockHash string    `json:"prev_block_hash"`
	TransCount    int       `json:"trans_count"`
	TimeStamp     uint64    `json:"timestamp"`
	Nonce         uint64    `json:"nonce"`
	BeneficiaryID AccountID `json:"beneficiary"`
}

// =============================================================================

// GenesisBlock constructs the fixed first block of the chain. The genesis
// allocations are recorded as transactions ordered by account.
func GenesisBlock(gen genesis.Genesis) (Block, error) {
	allocs := make(map[AccountID]uint64, len(gen.Balances))
	for name, value := range gen.Balances {
		accountID, err := ToAccountID(name)
		if err != nil {
			return Block{}, fmt.Errorf("genesis balance: %w", err)
		}

		if _, exists := allocs[accountID]; exists {
			return Block{}, fmt.Errorf("genesis balance: %w: %s is allocated more than once", ErrInvalidAccount, accountID)
		}
		allocs[accountID] = value
	}

	accountIDs := make([]AccountID, 0, len(allocs))
	for accountID := range allocs {
		accountIDs = append(accountIDs, accountID)
	}
	sort.Slice(accountIDs, func(i, j int) bool { return accountIDs[i] < accountIDs[j] })

	var trans []Tx
	for _, accountID := range accountIDs {
		value := allocs[accountID]
		if value == 0 {
			continue
		}

		trans = append(trans, newGenesisTx(accountID, value, gen.Date))
	}

	tree, root, err := newTree(trans)
	if err != nil {
		return Block{}, err
	}

	block := Block{
		Header: BlockHeader{
			Number:        0,
			PrevBlockHash: signature.ZeroHash,
			TimeStamp:     uint64(gen.Date.UTC().UnixMilli()),
			BeneficiaryID: SystemAccountID,
			Difficulty:    gen.Difficulty,
			TransRoot:     root,
		},
		Trans: tree,
	}

	return block, nil
}

// newTree constructs the merkle tree for the transactions. A block without
// transactions has no tree and the zero hash as its root.
func newTree(trans []Tx) (*merkle.Tree[Tx], string, error) {
	if len(trans) == 0 {
		return nil, signature.ZeroHash, nil
	}

	tree, err := merkle.NewTree(trans)
	if err != nil {
		return nil, "", err
	}

	return tree, tree.RootHex(), nil
}

// =============================================================================

// BlockData represents what is written to storage and sent to clients.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []Tx        `json:"trans"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Values(),
	}
}

// ToBlock converts a BlockData into a Block. The stored hash must match the
// hash recomputed from the header.
func ToBlock(blockData BlockData) (Block, error) {
	tree, _, err := newTree(blockData.Trans)
	if err != nil {
		return Block{}, err
	}

	block := Block{
		Header: blockData.Header,
		Trans:  tree,
	}

	if hash := block.Hash(); hash != blockData.Hash {
		return Block{}, NewChainError(blockData.Header.Number, fmt.Errorf("%w: stored hash %s, calculated %s", ErrInvalidProofOfWork, blockData.Hash, hash))
	}

	return block, nil
}
