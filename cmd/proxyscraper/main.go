package main

import (
	// Register Plugins via side-effects
	_ "proxyscraper/internal/collectors/file"
	_ "proxyscraper/internal/collectors/http"
	_ "proxyscraper/internal/collectors/telegram"
	_ "proxyscraper/internal/publishers/file"
	_ "proxyscraper/internal/publishers/github"
	_ "proxyscraper/internal/publishers/stdout"
)

func main() {
	Execute()
}
