// Package barstore persists bar series on local disk.
//
// The primary backend keeps one parquet file per partition: minute bars
// under minute/SYMBOL_DAY.parquet, daily bars under daily/SYMBOL.parquet.
// A legacy CSV backend under legacy/ is kept for reads written by older
// deployments and as a degradation target when parquet writes fail.
//
// All writes go through a single process-wide mutex in Cache. Reads decode
// through a pool of reusable row buffers; see parquet.go for the reuse
// contract.
package barstore
