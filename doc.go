// Package snapsweep finds near-duplicate images in large photo
// collections using embedding similarity.
//
// Images are identified by their content hash, so a file that moves or
// is renamed keeps its identity and is never re-embedded. The index
// lives in a vector store; reconciliation classifies the on-disk state
// against the store and embeds only genuinely new content.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	embedder := embedding.NewHTTPEmbedder("http://localhost:11434", "clip", 512)
//	analyzer, err := snapsweep.New(store.NewMemory(), embedder)
//	if err != nil {
//	    panic(err)
//	}
//	defer analyzer.Close()
//
//	report, _ := analyzer.UpdateIndex(ctx, paths)
//	fmt.Printf("new=%d moved=%d unchanged=%d\n", report.New, report.Moved, report.Unchanged)
//
//	pairs, _ := analyzer.FindNearDuplicates(ctx)
//	for _, p := range pairs {
//	    fmt.Println(p.Score, p.PathA, p.PathB)
//	}
//
// # Durability
//
// The in-memory store persists via self-describing snapshots written
// to any BlobStore (local directory, MinIO, S3):
//
//	bs, _ := blobstore.NewLocalStore("./data")
//	analyzer.Snapshot(ctx, bs, "index.snap")
//	analyzer, _ = snapsweep.Open(ctx, bs, "index.snap", embedder)
//
// # Key Features
//
//   - Content-hash identity: moves and renames never re-embed
//   - Bounded-memory pair mining (chunked scan + capped heap)
//   - Soft deletion with tombstones; resurrection on reappearance
//   - Batched embedding with partial-failure isolation
//   - Pluggable embedder, hasher, decoder and vector store
package snapsweep
