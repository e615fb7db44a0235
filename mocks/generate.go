package mocks

//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-sim/internal/strategy Strategy
//go:generate mockgen -destination=./mock_currency_converter.go -package=mocks github.com/rxtech-lab/argo-sim/internal/account CurrencyConverter
//go:generate mockgen -destination=./mock_sink.go -package=mocks github.com/rxtech-lab/argo-sim/internal/journal Sink
//go:generate mockgen -destination=./mock_event_source.go -package=mocks github.com/rxtech-lab/argo-sim/internal/datasource EventSource
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/argo-sim/pkg/marketdata/provider Provider
