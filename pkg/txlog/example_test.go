package txlog_test

import (
	"context"
	"fmt"
	"os"

	"github.com/rzbill/txlog/pkg/txlog"
)

type order struct {
	Item string `json:"item"`
	Qty  int    `json:"qty"`
}

func ExampleBatchedLog() {
	dir, err := os.MkdirTemp("", "txlog-example")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()
	l := txlog.NewBatchedLog("orders", txlog.Options[order]{DataDir: dir})

	if err := l.Open(ctx); err != nil {
		panic(err)
	}
	defer l.Close()

	l.Append(order{Item: "apple", Qty: 3})
	l.Append(order{Item: "pear", Qty: 1})
	if err := l.Commit(ctx); err != nil {
		panic(err)
	}

	l.Append(order{Item: "plum", Qty: 7})
	if err := l.Commit(ctx); err != nil {
		panic(err)
	}

	commits, err := l.SeqCommitsFrom(ctx, 1)
	if err != nil {
		panic(err)
	}

	for _, c := range commits {
		fmt.Printf("commit %d:", c.ID)
		for _, tx := range c.Transactions {
			fmt.Printf(" %d=%s", tx.ID, tx.Data.Item)
		}
		fmt.Println()
	}

	// Output:
	// commit 1: 1=apple 2=pear
	// commit 2: 3=plum
}

func ExampleSimpleLog_Replay() {
	dir, err := os.MkdirTemp("", "txlog-example")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()
	l := txlog.NewSimpleLog("counter", txlog.Options[int]{
		DataDir: dir,
		Backend: txlog.BackendBolt,
		Codec:   txlog.MsgpackCodec[int]{},
	})

	if err := l.Open(ctx); err != nil {
		panic(err)
	}
	defer l.Close()

	for _, n := range []int{5, -2, 10} {
		if err := l.Append(ctx, n); err != nil {
			panic(err)
		}
	}

	total := 0
	err = l.Replay(ctx, func(n int) error {
		total += n
		return nil
	})
	if err != nil {
		panic(err)
	}

	fmt.Println(total)

	// Output:
	// 13
}
