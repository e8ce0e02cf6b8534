package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/inkstudio/internal/server"
	"github.com/dmitrijs2005/inkstudio/internal/server/config"
)

func main() {

	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}

}

// run returns an error when the server could not start; a clean stop
// returns nil.
func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	app.Run(ctx)
	return nil
}
