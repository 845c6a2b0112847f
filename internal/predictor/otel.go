package predictor

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sc2helper/predictor/internal/predictor"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
