// Package crawl defines the crawl specification, analyzer, status, and
// result types shared by the console components, plus the narrow interfaces
// they use to reach the remote crawl service.
package crawl
