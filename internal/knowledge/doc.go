// Package knowledge provides the contract template vector store.
//
// Documents are chunks of NDA contract templates stored in PostgreSQL with
// pgvector embeddings. The Store embeds content through a genkit ai.Embedder
// and answers semantic queries by cosine similarity.
//
// Basic usage:
//
//	store := knowledge.New(knowledge.NewPGQuerier(pool), embedder, logger)
//	err := store.Add(ctx, knowledge.Document{ID: "nda_mutual_a1b2c3d4:0", Content: text})
//	results, err := store.Search(ctx, "confidentiality term length",
//	    knowledge.WithTopK(8))
package knowledge
