package main

import (
	"os"

	"github.com/ssMMiles/easy-roles/pkg/app"
	"github.com/ssMMiles/easy-roles/pkg/log"
)

// main is the entry point of the Discord bot.
func main() {
	if err := app.Run("easy-roles", "EASY_ROLES_TOKEN"); err != nil {
		log.Errorf("Fatal: %v", err)
		os.Exit(1)
	}
}
