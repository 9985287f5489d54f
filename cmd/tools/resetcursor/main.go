// Command resetcursor force-rewinds one chain/namespace/address cursor so
// the next scheduler tick re-scans from an earlier block. Use after a
// decoder fix to re-derive buckets that were merged with stale logic.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/synindex/bridge-analytics/internal/store"
)

func main() {
	var (
		chain     string
		namespace string
		address   string
		toBlock   uint64
	)

	flag.StringVar(&chain, "chain", "", "chain name, as it appears in the roster (required)")
	flag.StringVar(&namespace, "namespace", "logs", "cursor namespace: logs or pool")
	flag.StringVar(&address, "address", "", "contract address the cursor tracks (required)")
	flag.Uint64Var(&toBlock, "to-block", 0, "rewind the cursor to this block, tx_index -1")
	flag.Parse()

	if chain == "" || address == "" {
		log.Fatal("-chain and -address are required")
	}

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := store.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("[resetcursor] connect: %v", err)
	}
	defer db.Close()

	before, err := db.Cursor(ctx, chain, namespace, address)
	if err != nil {
		log.Fatalf("[resetcursor] read current cursor: %v", err)
	}
	log.Printf("[resetcursor] %s/%s/%s currently at block=%d tx_index=%d", chain, namespace, address, before.MaxBlockStored, before.TxIndex)

	if err := db.AdvanceCursor(ctx, chain, namespace, address, toBlock, -1); err != nil {
		log.Fatalf("[resetcursor] rewind failed: %v", err)
	}
	log.Printf("[resetcursor] %s/%s/%s rewound to block=%d tx_index=-1", chain, namespace, address, toBlock)
}
