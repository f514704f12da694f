// Package query validates evidence queries before they reach a storage
// backend and fills in paging defaults.
//
//	q := &evidence.Query{Status: evidence.StatusError}
//	query.ApplyDefaults(q)
//	if err := query.Validate(q); err != nil {
//		return err
//	}
//	records, err := store.Query(ctx, q)
package query
