package metrics

import "database/sql"

// UpdateCacheStorePool publishes sql.DBStats of the embedding cache database.
func UpdateCacheStorePool(dialect string, stats sql.DBStats) {
	CacheStoreConnections.WithLabelValues(dialect, "in_use").Set(float64(stats.InUse))
	CacheStoreConnections.WithLabelValues(dialect, "idle").Set(float64(stats.Idle))
	CacheStoreConnections.WithLabelValues(dialect, "max_open").Set(float64(stats.MaxOpenConnections))
}
