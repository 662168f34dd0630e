package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Gunvolt24/cnshell/internal/app"
	"github.com/Gunvolt24/cnshell/pkg/shell"
	"github.com/joho/godotenv"
)

// version задаётся при сборке: -ldflags "-X main.version=1.2.3".
var version string

func main() {
	_ = godotenv.Load(".env.local")

	ctx := context.Background()

	a, err := app.Bootstrap(ctx, shell.Config{
		Name:       "cnshell-demo",
		AppVersion: version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}

	// SIGINT/SIGTERM обрабатывает оболочка: Exit(0) завершает процесс
	if err := a.Run(ctx); err != nil {
		os.Exit(1)
	}
}
