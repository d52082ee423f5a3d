package main

import (
	"github.com/joho/godotenv"

	"github.com/sathwikbalu/Zenith-Study/internal/cmd"
	"github.com/sathwikbalu/Zenith-Study/internal/logging"
)

func main() {
	// DOMAIN, STUN_SERVER and TURN_* may come from a local .env
	_ = godotenv.Load()

	logging.Init()
	cmd.Execute()
}
