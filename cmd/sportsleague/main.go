// Command sportsleague serves the SportsLeague HTTP functions.
//
//	sportsleague serve --config /etc/sportsleague/config.yaml
//	sportsleague check-token < token.txt
//
// Settings come from the optional config file and SPORTSLEAGUE_*
// environment variables, e.g. SPORTSLEAGUE_AUTH_TENANT_NAME.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
