package memosync_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aretw0/memosync"
	"github.com/aretw0/memosync/pkg/core"
)

type fixtureSource []core.Memo

func (f fixtureSource) FetchAll(ctx context.Context, limit int) ([]core.Memo, error) {
	return f, nil
}

// Example_sync runs two passes over the same memo: the second one finds the
// document already materialized and leaves it alone.
func Example_sync() {
	tmpDir, err := os.MkdirTemp("", "memosync-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	cfg := memosync.DefaultConfig()
	cfg.Memos.URL = "https://memos.example.com/api/v1"
	cfg.Memos.Token = "token"
	cfg.Sync.Dir = tmpDir
	cfg.Sync.Timezone = "UTC"

	at := time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC)
	source := fixtureSource{{
		Name:       "memos/1",
		Content:    "Remember to water the plants on Friday",
		Visibility: core.VisibilityPrivate,
		CreateTime: at,
		UpdateTime: at,
	}}

	app, err := memosync.New(cfg, memosync.WithSource(source))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		report, err := app.Service.Sync(ctx)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("persisted=%d skipped=%d\n", report.Persisted, report.Skipped)
	}
	// Output:
	// persisted=1 skipped=0
	// persisted=0 skipped=1
}
