/*
Package export writes evidence records as JSON or CSV for offline audit.

Records only ever carry counts, labels, hashes and timings, so an export is
safe to hand to an auditor: no prompt text or placeholder mapping can appear
in it.

Both exporters accept either a slice (Export) or a channel (ExportStream).
Stream pages through a storage backend and feeds a channel, so large audit
trails are written without holding every record in memory:

	exp, err := export.New("csv", false)
	if err != nil {
		return err
	}
	records, errs := export.Stream(ctx, store, evidence.Query{Status: evidence.StatusError}, 0)
	if err := exp.ExportStream(ctx, records, os.Stdout); err != nil {
		return err
	}
	return <-errs

CSV columns are listed in Header. The entity_counts column holds a JSON
object such as {"PERSON":2,"US_SSN":1}.
*/
package export
