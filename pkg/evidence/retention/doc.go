// Package retention prunes evidence records older than a configured age.
//
// A Pruner deletes every record whose request time falls before now minus
// RetentionDays. Zero or negative retention keeps records forever. Pruning
// can be run on demand with Prune or on a cron schedule (robfig/cron,
// standard five-field syntax or descriptors such as "@daily") with Start.
//
//	pruner := retention.NewPruner(store, retention.FromConfig(cfg.Evidence.Retention))
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
package retention
