package config

import "github.com/spf13/cobra"

// RegisterFlags registers the global flags on the root command. Commands
// may add "no-headless", "db" and "kafka-brokers" locally; Load reads them
// when present.
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	pf := cmd.PersistentFlags()
	pf.StringP("config", "c", "", "Path to a JSON5 configuration file")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.BoolP("quiet", "q", false, "Only log errors")
	pf.Bool("json", false, "JSON logs and machine readable output")
	pf.String("user-agent", "", "User agent sent to marketplaces")
	pf.String("proxy", "", "HTTP/SOCKS5 proxy, or a comma-separated rotation list")
	pf.String("timeout", DefaultHTTPTimeout.String(), "Per-request timeout")
	pf.Float64("rps", DefaultRateLimitRPS, "Requests per second allowed per host")
	pf.String("chrome-path", "", "Chrome or Chromium executable for browser-based discovery")
}
