// Package pagination provides exhaustive, sequential page collection for
// Freshservice list and filter endpoints.
//
// Freshservice returns at most 30 items per page and only sometimes sets a
// Link header with rel="next". The collector therefore decides after every
// page whether to continue using two signals:
//
//   - an empty page always ends the run
//   - otherwise the run continues if the page was full (30 items) OR the
//     Link header names a next page
//
// Pages are requested strictly in order (1, 2, 3, ...). The page index is
// always incremented locally; next-page numbers from the Link header are
// never used to jump.
//
// Example usage:
//
//	collector := pagination.NewCollector(fsClient)
//	res, err := collector.Collect(ctx, pagination.Request{
//		Collection: "tickets/filter",
//		Key:        "tickets",
//		Query:      "group_id:12 AND status:2",
//	}, pagination.Options{MaxResults: 500})
//
// When MaxResults is reached the result is trimmed to exactly MaxResults
// items and marked Truncated.
package pagination
