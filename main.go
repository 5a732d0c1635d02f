package main

import (
	"context"
	"time"

	"github.com/shandysiswandi/wapilot/internal/app"
)

const shutdownTimeout = 10 * time.Second

func main() {
	a := app.New()
	<-a.Start()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.Stop(ctx)
}
