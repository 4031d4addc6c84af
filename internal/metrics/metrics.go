package metrics

import "expvar"

var (
	ModelCreates    = expvar.NewInt("model_creates")
	ModelDeletes    = expvar.NewInt("model_deletes")
	EvalRequests    = expvar.NewInt("eval_requests")
	EvalCacheHits   = expvar.NewInt("eval_cache_hits")
	TableRequests   = expvar.NewInt("table_requests")
	TableCacheHits  = expvar.NewInt("table_cache_hits")
	StreamClients   = expvar.NewInt("stream_clients")
	StreamSamples   = expvar.NewInt("stream_samples")
)
