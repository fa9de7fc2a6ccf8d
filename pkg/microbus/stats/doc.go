// Package stats collects application statistics by message passing.
//
// Services never touch shared counters directly. They broadcast a
// CountBroadcast, and the collector service folds it into a Folder:
//
//	folder := stats.NewFolder()
//	collector := stats.NewCollector(broker, folder)
//	...
//	stats.Count(svc, "detected_objects", 3)
//
// The collector also counts clock ticks as system runtime and records the
// first crash it hears about. Snapshots are read with Request, saved to a
// Store and written out with WriteReport.
package stats
