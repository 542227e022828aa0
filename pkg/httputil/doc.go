// Package httputil provides HTTP retry infrastructure for tracker API
// clients.
//
// # Retry
//
// [Retry] wraps HTTP requests with automatic retry for transient
// failures: network errors and 5xx server errors. Only errors wrapped in
// [RetryableError] are retried; permanent failures (404, auth errors)
// return immediately.
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return client.fetchPage(ctx, url)
//	})
//
// The delay doubles after each failed attempt, and the context cancels
// waiting between attempts.
//
// Response caching lives in the cache package; clients combine the two.
package httputil
