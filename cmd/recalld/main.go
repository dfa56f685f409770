// Command recalld manages and serves the medical vector indices: build
// artifacts from the configured sources, inspect them, or run the HTTP
// search service on top of them.
package main

import "github.com/joho/godotenv"

func main() {
	// Optional .env bootstrap, mainly so GOOGLE_API_KEY can live next to
	// the config during development.
	_ = godotenv.Load()

	Execute()
}
