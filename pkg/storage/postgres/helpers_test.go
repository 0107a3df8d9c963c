package postgres

import (
	"io"

	"github.com/bookcourier/bookcourier/pkg/observability"
)

func observabilityLoggerForTests() *observability.Logger {
	return observability.NewLogger(observability.ParseLevel("error"), io.Discard)
}
