package syncqueue_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/honesthomesales/TODO/internal/appstate"
	"github.com/honesthomesales/TODO/internal/connectivity"
	"github.com/honesthomesales/TODO/internal/store/mirror"
	"github.com/honesthomesales/TODO/internal/syncqueue"
	"github.com/honesthomesales/TODO/internal/testutil"
	"github.com/honesthomesales/TODO/internal/types"
)

// Work queued while offline reaches the remote store on reconnect.
func ExampleQueue_Attach() {
	dir, err := os.MkdirTemp("", "syncqueue-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	logger := log.New()
	logger.SetOutput(io.Discard)

	m, err := mirror.Open(filepath.Join(dir, "mirror.db"), logger)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer m.Close()

	ctx := context.Background()
	state := appstate.New(nil, nil, nil)
	store := testutil.NewFakeRemote()
	monitor := connectivity.New(false)

	q, err := syncqueue.New(state, m, store, logger)
	if err != nil {
		fmt.Println(err)
		return
	}
	q.Attach(ctx, monitor)

	add := types.NewAddAction(types.Task{ID: "t1", Text: "Buy milk", Status: types.StatusTodo, Priority: types.PriorityMedium})
	state.Do(func(tx *appstate.Tx) {
		tx.SetTasks(types.Apply(tx.Tasks(), add))
		q.Enqueue(ctx, tx, add)
	})
	fmt.Println("pending:", q.Len())

	monitor.Set(true)
	fmt.Println("pending:", q.Len())
	fmt.Println("remote tasks:", len(store.Snapshot()))
	// Output:
	// pending: 1
	// pending: 0
	// remote tasks: 1
}
