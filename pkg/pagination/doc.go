// Package pagination loads pages of artworks and drives the cross-page
// row selector.
//
// A Driver owns the page on screen and a selection.Selector. Loading a
// page feeds it to the selector; when a "select first N rows" request
// spills past the current page the Driver keeps loading the following
// pages until the request is filled or the pages run out:
//
//	d := pagination.NewDriver(apiClient, logger)
//	if err := d.Load(ctx, 1); err != nil { ... }
//	tr, err := d.RequestSelection(ctx, 30)
//
// Every fetch is stamped with a sequence number. A response that arrives
// after a newer fetch was started is discarded with ErrStaleResponse.
//
// BatchFetcher fetches a range of pages with a small worker pool, for
// export or to warm the response cache:
//
//	fetcher := pagination.NewBatchFetcher(apiClient, pagination.DefaultConfig())
//	pages, err := fetcher.FetchRange(ctx, 1, 10)
package pagination
