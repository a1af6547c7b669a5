// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/blockcraft/business/web/errs"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/mempool"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/state"
	"github.com/ardanlabs/blockcraft/foundation/events"
	"github.com/ardanlabs/blockcraft/foundation/validate"
	"github.com/ardanlabs/blockcraft/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the blockchain or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction adds a new transfer to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nt newTx
	if err := web.Decode(r, &nt); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", web.GetTraceID(ctx), "from", nt.From, "to", nt.To, "value", nt.Value)

	if err := validate.Check(nt); err != nil {
		return err
	}

	value, err := nt.amount()
	if err != nil {
		return toTrusted(err)
	}

	dbTx, err := h.State.SubmitTransaction(nt.From, nt.To, value)
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, toTx(dbTx), http.StatusOK)
}

// MineBlock runs a mining attempt and waits for the result.
func (h Handlers) MineBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var mr mineRequest
	if r.ContentLength != 0 {
		if err := web.Decode(r, &mr); err != nil {
			return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
		}
	}

	blk, err := h.State.MineNewBlock(ctx, database.AccountID(mr.Beneficiary))
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, toBlock(blk), http.StatusOK)
}

// SignalMining asks the background worker to run a mining attempt.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.Worker == nil {
		return errs.NewTrusted(errors.New("background mining is not running"), http.StatusServiceUnavailable)
	}

	h.State.Worker.SignalStartMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// CancelMining stops the mining attempt in progress.
func (h Handlers) CancelMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Cancelled bool `json:"cancelled"`
	}{
		Cancelled: h.State.CancelMining(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions in submission order.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct := database.AccountID(web.Param(r, "account"))

	trans := []tx{}
	for _, tran := range h.State.RetrieveMempool() {
		if acct != "" && acct != tran.FromID && acct != tran.ToID {
			continue
		}
		trans = append(trans, toTx(tran))
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Accounts returns the current balances for all accounts or the specified
// account. The chain is validated before any balance is reported.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var dbAccounts []database.Account

	switch account := web.Param(r, "account"); account {
	case "":
		var err error
		if dbAccounts, err = h.State.RetrieveBalances(); err != nil {
			return toTrusted(err)
		}

	default:
		accountID, err := database.ToAccountID(account)
		if err != nil {
			return toTrusted(err)
		}

		dbAccount, err := h.State.QueryBalance(accountID)
		if err != nil {
			return toTrusted(err)
		}
		dbAccounts = append(dbAccounts, dbAccount)
	}

	bals := make([]balance, len(dbAccounts))
	for i, dbAccount := range dbAccounts {
		bals[i] = balance{Account: dbAccount.AccountID, Balance: dbAccount.Balance}
	}

	ai := actInfo{
		LatestBlock: h.State.RetrieveLatestBlock().Hash(),
		Uncommitted: h.State.QueryMempoolLength(),
		Accounts:    bals,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// Chain returns the summary of every block in the chain.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryChain(), http.StatusOK)
}

// BlocksByAccount returns all the blocks and their details. When an account
// is specified only the blocks with a transaction for the account are returned.
func (h Handlers) BlocksByAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var accountID database.AccountID
	if account := web.Param(r, "account"); account != "" {
		var err error
		if accountID, err = database.ToAccountID(account); err != nil {
			return toTrusted(err)
		}
	}

	dbBlocks := h.State.QueryBlocksByAccount(accountID)
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, toBlocks(dbBlocks), http.StatusOK)
}

// BlocksByNumber returns the blocks in the range. The word latest can be used
// for either end of the range.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := toBlockNumber(web.Param(r, "from"))
	if err != nil {
		return err
	}

	to, err := toBlockNumber(web.Param(r, "to"))
	if err != nil {
		return err
	}

	if from != state.QueryLatest && from > to {
		return errs.NewTrusted(errors.New("from is greater than to"), http.StatusBadRequest)
	}

	dbBlocks := h.State.QueryBlocksByNumber(from, to)
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, toBlocks(dbBlocks), http.StatusOK)
}

// Validate audits the whole chain and reports the first violation found.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := validation{
		Valid:  true,
		Length: len(h.State.QueryChain()),
	}

	if err := h.State.ValidateChain(); err != nil {
		resp.Valid = false
		resp.Violation = err.Error()
		if ce := database.GetChainError(err); ce != nil {
			resp.Index = &ce.Index
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Stats returns the statistics for the chain and the mempool.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryStats(), http.StatusOK)
}

// =============================================================================

// toTrusted assigns the status for the errors the chain rules return so the
// reason is reported back to the client.
func toTrusted(err error) error {
	switch {
	case errors.Is(err, database.ErrInvalidAmount),
		errors.Is(err, database.ErrInvalidAccount),
		errors.Is(err, database.ErrInsufficientFunds),
		errors.Is(err, mempool.ErrDuplicateTx):
		return errs.NewTrusted(err, http.StatusBadRequest)

	case errors.Is(err, state.ErrMiningInProgress),
		errors.Is(err, state.ErrMiningCancelled),
		errors.Is(err, database.ErrBalanceOverflow) && !errors.Is(err, database.ErrCorruptChain):
		return errs.NewTrusted(err, http.StatusConflict)

	case errors.Is(err, database.ErrCorruptChain):
		return errs.NewTrusted(err, http.StatusInternalServerError)
	}

	return err
}

// toBlockNumber converts the parameter into a block number.
func toBlockNumber(param string) (uint64, error) {
	if param == "latest" || param == "" {
		return state.QueryLatest, nil
	}

	num, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return 0, errs.NewTrusted(fmt.Errorf("invalid block number %q: %w", param, err), http.StatusBadRequest)
	}

	return num, nil
}
