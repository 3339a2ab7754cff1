package reports

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ibrahim-bhat/billflow_backend/config"
)

// Report caching is off by default; reports read live tables. When a
// deployment turns it on the results are served stale for up to the
// TTL, except the stock summary which the sweep invalidates.

const (
	stockSummaryCacheKey     = "report:stock_summary"
	vendorBalancesCacheKey   = "report:vendor_balances"
	customerBalancesCacheKey = "report:customer_balances"
)

func reportCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_REPORT_CACHE"))
	return v == "1" || strings.EqualFold(v, "true")
}

// Env: REPORT_CACHE_TTL_SECONDS (default 120s)
func reportCacheTTL() time.Duration {
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

func cacheGet[T any](key string, dest *T) bool {
	if !reportCacheEnabled() {
		return false
	}
	found, err := config.GetRedisObject(key, dest)
	return err == nil && found
}

func cacheSet(key string, obj any) {
	if !reportCacheEnabled() {
		return
	}
	_ = config.SetRedisObject(key, obj, reportCacheTTL())
}

// InvalidateStockSummaryCache drops the cached stock summary. The sweep
// calls it after removing lines so a cached report never shows swept
// stock for a full TTL.
func InvalidateStockSummaryCache() {
	_ = config.RemoveRedisKey(stockSummaryCacheKey)
}
