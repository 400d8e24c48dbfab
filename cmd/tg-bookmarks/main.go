package main

// @title           tg-bookmarks API
// @version         1.0
// @description     Read-only browsing API over a local mirror of a Telegram forum channel, plus the sync trigger.

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
