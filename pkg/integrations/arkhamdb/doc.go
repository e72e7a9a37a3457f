// Package arkhamdb provides a client for the public ArkhamDB card API.
//
// [Client.Search] issues one request per query and returns the page as a
// lazy, single-use [iter.Seq] of [Card], ranked by how well each card
// matches the query. [Client.Card] fetches one card by code. Every card the
// client sees is kept in an in-memory cache for the life of the process, so
// repeat lookups for a code never touch the network:
//
//	client := arkhamdb.NewClient(arkhamdb.Options{})
//	cards, err := client.Search(ctx, "roland", false)
//	if err != nil {
//	    // NETWORK_ERROR: treat as no results, let the user retry
//	}
//	for card := range cards {
//	    fmt.Println(card.Code, card.Name)
//	}
//
// Malformed records in a page are logged and skipped. Requests time out
// after 10 seconds and are spaced at least 100ms apart.
package arkhamdb
