// Package gateway - dashboard.go serves a minimal operator page at /dashboard.
//
// DESIGN: The page is static and links to the JSON and Prometheus
// endpoints; it fetches nothing itself.
package gateway

import (
	"net/http"
)

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>GAIA Gateway</title>
<style>
  body { font-family: system-ui, sans-serif; background: #0a0a0a; color: #fff; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
  .container { text-align: center; padding: 48px; }
  h1 { font-size: 24px; margin-bottom: 16px; }
  a { color: #22c55e; text-decoration: none; font-family: monospace; }
  a:hover { text-decoration: underline; }
</style>
</head>
<body>
<div class="container">
  <h1>GAIA Gateway</h1>
  <a href="/stats">/stats</a> &nbsp;|&nbsp;
  <a href="/costs">/costs</a> &nbsp;|&nbsp;
  <a href="/metrics">/metrics</a> &nbsp;|&nbsp;
  <a href="/models/versions">/models/versions</a>
</div>
</body>
</html>`

// handleDashboard serves the operator page.
func (g *Gateway) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}
