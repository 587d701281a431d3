package main

import (
	"context"
	"errors"
	"os"

	"oppfinder-backend/cmd/oppfinder/commands"
	"oppfinder-backend/lib/serviceutil"
	"oppfinder-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	err := telemetry.SetupFromEnv(ctx, "oppfinder")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
