// Package api hosts the stand-in crawl service used for local runs and
// end-to-end tests of the console. Notable routes:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET|POST {base}/crawls and POST {base}/crawls/{id}/start|stop for the
//     job lifecycle, DELETE {base}/crawls/{id} for removal.
//   - GET {base}/crawls/{id}/spec/download for spec export.
//   - POST {base}/results/{id}/record_summaries|records for results.
//   - POST {base}/crawls/{id}/records to ingest result records, which the
//     real service produces by crawling.
package api
