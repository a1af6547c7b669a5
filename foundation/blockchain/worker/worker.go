// Package worker implements background mining for the blockchain.
package worker

import (
	"sync"
	"time"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/state"
)

// cancelRetry is how often shutdown cancels mining while waiting for the
// mining G to terminate.
const cancelRetry = 10 * time.Millisecond

// =============================================================================

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state       *state.State
	wg          sync.WaitGroup
	shut        chan struct{}
	startMining chan bool
	evHandler   state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, evHandler state.EventHandler) *Worker {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	w := Worker{
		state:       st,
		shut:        make(chan struct{}),
		startMining: make(chan bool, 1),
		evHandler:   evHandler,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	// Pick up anything that was submitted before the worker existed.
	if st.ShouldAutoMine() {
		w.SignalStartMining()
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	// A mining operation could start right before the shut signal is seen
	// so keep cancelling until the G's are gone.
	for {
		w.evHandler("worker: shutdown: signal cancel mining")
		w.SignalCancelMining()

		select {
		case <-done:
			return
		case <-time.After(cancelRetry):
		}
	}
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining stops the mining operation in progress, if any.
func (w *Worker) SignalCancelMining() {
	if w.state.CancelMining() {
		w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
