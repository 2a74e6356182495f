// Package metric records qrtoken metrics.
//
// Recorder is the narrow interface the token manager and HTTP middleware
// write to. Registry implements it on a private prometheus registry and
// serves it at /metrics; Nop discards everything.
//
// Exported series:
//
//   - qrtoken_tokens_issued_total
//   - qrtoken_validations_total{result}
//   - qrtoken_revocations_total{mode}
//   - qrtoken_pruned_total
//   - qrtoken_store_errors_total{op}
//   - qrtoken_http_requests_total{method,route,status}
//   - qrtoken_http_request_duration_seconds{method,route}
package metric
