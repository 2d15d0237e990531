// Package vt provides a native Go client for the VirusTotal v3
// threat-intelligence REST API.
//
// # Features
//
//   - Generic object model for any API entity (files, URLs, comments, ...)
//   - Resumable cursor-based pagination for collection endpoints
//   - Continuous feed consumption with retry-on-gap semantics
//   - Typed errors for precise error handling
//   - Functional options for flexible configuration
//   - No runtime dependencies (test dependencies only)
//
// # Quick Start
//
//	client, err := vt.NewClient(
//	    vt.WithAPIKey(apiKey),
//	    vt.WithAgent("my-app"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Fetch a single object
//	obj, err := client.GetObject(ctx, "/files/"+sha256)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(obj.ID, obj.Type)
//
// # Pagination
//
// Collection endpoints are consumed through an Iterator that fetches
// pages lazily as you pull objects from it:
//
//	it := client.Search("positives:5+ type:pdf", vt.WithLimit(100))
//	for {
//	    obj, err := it.Next(ctx)
//	    if errors.Is(err, vt.ErrDone) {
//	        break
//	    }
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(obj.ID)
//	}
//
// Iteration can be suspended and resumed later, even from another
// process: capture Iterator.Cursor, persist it, and pass it to a new
// iterator with WithCursor.
//
// Iterators also expose a range-over-func view and compose with the
// generic sequence helpers:
//
//	objects, err := vt.Collect(client.Iterator("/comments").All(ctx))
//
// # Feeds
//
// Feeds are continuous streams of objects bucketed into one-minute
// windows. The feed retries windows the server has not published yet and
// never returns the same window twice:
//
//	feed, err := client.Feed(vt.FeedTypeFiles, vt.WithFeedCursor("202304010930"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for batch, err := range feed.All(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("window %s: %d objects\n", batch.Cursor(), len(batch.Objects))
//	}
//
// # Error Handling
//
// The package uses typed errors that can be inspected with errors.As:
//
//	obj, err := client.GetObject(ctx, "/files/"+sha256)
//	if err != nil {
//	    var notFound *vt.NotFoundError
//	    if errors.As(err, &notFound) {
//	        // Handle not found
//	    }
//	}
package vt
