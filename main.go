package main

import (
	"context"
	"errors"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		// The alert has already been printed.
		if errors.Is(err, errOpenFailed) {
			os.Exit(1)
		}

		exitOnError(err)
	}
}
