package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alonePlayerr1/MAI-Bot/internal/bootstrap"
)

func main() {
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "mai-bot failed: %v\n", err)
		os.Exit(1)
	}
}
