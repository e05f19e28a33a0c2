// Package askdoc provides an embeddable document question-answering engine:
// upload plain text, have it chunked and embedded into a persistent vector
// index, then ask questions answered from the best-matching chunks.
//
//	client, _ := askdoc.New(
//	    askdoc.WithDataDir("./vector_store"),
//	    askdoc.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	)
//	defer client.Close()
//
//	id, _ := client.AddDocument(ctx, text, "report.txt")
//	answer, _ := client.Ask(ctx, "What does the report conclude?", id)
package askdoc
